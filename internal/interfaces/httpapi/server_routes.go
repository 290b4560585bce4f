package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("POST /v1/coupons", handler.GenerateCoupon)
	mux.HandleFunc("GET /v1/analysis", handler.GetAnalysis)
	mux.HandleFunc("GET /v1/teams/{team}/form", handler.GetTeamForm)
	mux.HandleFunc("POST /v1/chat", handler.Chat)
}
