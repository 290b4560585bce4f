package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/betforge/coupon-engine/internal/domain/coupon"
	"github.com/betforge/coupon-engine/internal/domain/history"
	"github.com/betforge/coupon-engine/internal/domain/odds"
	"github.com/betforge/coupon-engine/internal/usecase"
)

type Handler struct {
	fixtureService  *usecase.FixtureService
	couponService   *usecase.CouponService
	analysisService *usecase.AnalysisService
	formService     *usecase.FormService
	chatService     *usecase.ChatService
	defaultLeagues  []string
	formWorkers     int
	logger          *slog.Logger
	validator       *validator.Validate
}

func NewHandler(
	fixtureService *usecase.FixtureService,
	couponService *usecase.CouponService,
	analysisService *usecase.AnalysisService,
	formService *usecase.FormService,
	chatService *usecase.ChatService,
	defaultLeagues []string,
	formPrefetchWorkers int,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		fixtureService:  fixtureService,
		couponService:   couponService,
		analysisService: analysisService,
		formService:     formService,
		chatService:     chatService,
		defaultLeagues:  defaultLeagues,
		formWorkers:     formPrefetchWorkers,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) decodeJSONBody(r *http.Request, target any) error {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	leagues, err := h.requestedLeagues(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures, err := h.fixtureService.FixturesForAll(ctx, leagues)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixtures failed", "leagues", leagues, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]fixtureDTO, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, fixtureToDTO(f))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type generateCouponRequest struct {
	Leagues   []string `json:"leagues" validate:"omitempty,dive,required"`
	TargetOdd float64  `json:"target_odd" validate:"required,gt=1"`
	Risk      string   `json:"risk" validate:"required"`
}

func (h *Handler) GenerateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateCoupon")
	defer span.End()

	var req generateCouponRequest
	if err := h.decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	risk, err := odds.ParseRiskLevel(req.Risk)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	leagues := req.Leagues
	if len(leagues) == 0 {
		leagues = h.defaultLeagues
	}
	if len(leagues) == 0 {
		writeError(ctx, w, fmt.Errorf("%w: no leagues requested and no catalog configured", usecase.ErrInvalidInput))
		return
	}

	fixtures, err := h.fixtureService.FixturesForAll(ctx, leagues)
	if err != nil {
		h.logger.WarnContext(ctx, "coupon fixture fetch failed", "leagues", leagues, "error", err)
		writeError(ctx, w, err)
		return
	}

	// Warm the form cache for every team on the slate so the per-team
	// form endpoint answers from cache right after generation.
	h.prefetchTeamForms(ctx, fixtures)

	result, err := h.couponService.GenerateCoupon(ctx, fixtures, req.TargetOdd, risk)
	if err != nil {
		h.logger.ErrorContext(ctx, "coupon generation failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, couponToDTO(result))
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAnalysis")
	defer span.End()

	leagues, err := h.requestedLeagues(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures, err := h.fixtureService.FixturesForAll(ctx, leagues)
	if err != nil {
		h.logger.WarnContext(ctx, "analysis fixture fetch failed", "leagues", leagues, "error", err)
		writeError(ctx, w, err)
		return
	}

	rows := h.analysisService.Analyze(ctx, fixtures)
	items := make([]analysisRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, analysisRowToDTO(row))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetTeamForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeamForm")
	defer span.End()

	team := strings.TrimSpace(r.PathValue("team"))
	if team == "" {
		writeError(ctx, w, fmt.Errorf("%w: team is required", usecase.ErrInvalidInput))
		return
	}

	results := h.formService.TeamForm(ctx, team)
	items := make([]matchResultDTO, 0, len(results))
	for _, result := range results {
		items = append(items, matchResultToDTO(result))
	}

	writeSuccess(ctx, w, http.StatusOK, teamFormDTO{Team: team, Results: items})
}

type chatRequest struct {
	Prompt  string   `json:"prompt" validate:"required,max=2000"`
	Leagues []string `json:"leagues" validate:"omitempty,dive,required"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Chat")
	defer span.End()

	if h.chatService == nil {
		writeError(ctx, w, fmt.Errorf("%w: chat model is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req chatRequest
	if err := h.decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	answer, err := h.chatService.Ask(ctx, req.Prompt, req.Leagues)
	if err != nil {
		h.logger.ErrorContext(ctx, "chat failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, chatResponseDTO{Answer: answer})
}

// requestedLeagues resolves the league keys for a request: explicit
// ?league= values win, otherwise the configured sport catalog applies.
func (h *Handler) requestedLeagues(r *http.Request) ([]string, error) {
	leagues := leaguesFromQuery(r)
	if len(leagues) == 0 {
		leagues = h.defaultLeagues
	}
	if len(leagues) == 0 {
		return nil, fmt.Errorf("%w: no leagues requested and no catalog configured", usecase.ErrInvalidInput)
	}
	return leagues, nil
}

func leaguesFromQuery(r *http.Request) []string {
	var leagues []string
	for _, raw := range r.URL.Query()["league"] {
		if candidate := strings.TrimSpace(raw); candidate != "" {
			leagues = append(leagues, candidate)
		}
	}
	return leagues
}

// prefetchTeamForms warms the team-form cache for every side on the
// slate over the bounded worker pool. Failures already degrade inside
// the form service, so there is nothing to surface here.
func (h *Handler) prefetchTeamForms(ctx context.Context, fixtures []odds.Fixture) {
	if h.formService == nil || len(fixtures) == 0 {
		return
	}

	seen := make(map[string]bool, len(fixtures)*2)
	teams := make([]string, 0, len(fixtures)*2)
	for _, fixture := range fixtures {
		for _, name := range []string{fixture.HomeTeam, fixture.AwayTeam} {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			teams = append(teams, name)
		}
	}

	h.formService.Prefetch(ctx, teams, h.formWorkers)
}

type outcomeDTO struct {
	Label string   `json:"label"`
	Price float64  `json:"price"`
	Line  *float64 `json:"line,omitempty"`
}

type fixtureDTO struct {
	HomeTeam   string       `json:"home_team"`
	AwayTeam   string       `json:"away_team"`
	SportTitle string       `json:"sport_title"`
	Kickoff    time.Time    `json:"kickoff"`
	Outcomes   []outcomeDTO `json:"outcomes"`
}

func fixtureToDTO(f odds.Fixture) fixtureDTO {
	outcomes := make([]outcomeDTO, 0, len(f.Outcomes))
	for _, o := range f.Outcomes {
		outcomes = append(outcomes, outcomeDTO{Label: o.Label, Price: o.Price, Line: o.Line})
	}
	return fixtureDTO{
		HomeTeam:   f.HomeTeam,
		AwayTeam:   f.AwayTeam,
		SportTitle: f.SportTitle,
		Kickoff:    f.Kickoff,
		Outcomes:   outcomes,
	}
}

type legDTO struct {
	Fixture string    `json:"fixture"`
	Label   string    `json:"label"`
	Price   float64   `json:"price"`
	Line    *float64  `json:"line,omitempty"`
	Score   float64   `json:"score"`
	BTTSPct int       `json:"btts_pct"`
	Kickoff time.Time `json:"kickoff"`
}

type couponDTO struct {
	Legs        []legDTO `json:"legs"`
	CombinedOdd float64  `json:"combined_odd"`
	TargetOdd   float64  `json:"target_odd"`
	Risk        string   `json:"risk"`
}

func couponToDTO(c coupon.Coupon) couponDTO {
	legs := make([]legDTO, 0, len(c.Legs))
	for _, leg := range c.Legs {
		legs = append(legs, legDTO{
			Fixture: leg.FixtureKey,
			Label:   leg.Label,
			Price:   leg.Price,
			Line:    leg.Line,
			Score:   leg.Score,
			BTTSPct: leg.BTTSPct,
			Kickoff: leg.Kickoff,
		})
	}
	return couponDTO{
		Legs:        legs,
		CombinedOdd: c.CombinedOdd,
		TargetOdd:   c.TargetOdd,
		Risk:        string(c.Risk),
	}
}

type analysisRowDTO struct {
	HomeTeam       string    `json:"home_team"`
	AwayTeam       string    `json:"away_team"`
	Kickoff        time.Time `json:"kickoff"`
	BTTSPct        int       `json:"btts_pct"`
	ExpectedGoals  float64   `json:"expected_goals"`
	Classification string    `json:"classification"`
}

func analysisRowToDTO(row coupon.AnalysisRow) analysisRowDTO {
	return analysisRowDTO{
		HomeTeam:       row.HomeTeam,
		AwayTeam:       row.AwayTeam,
		Kickoff:        row.Kickoff,
		BTTSPct:        row.BTTSPct,
		ExpectedGoals:  row.ExpectedGoals,
		Classification: string(row.Classification),
	}
}

type matchResultDTO struct {
	Result   string    `json:"result"`
	Score    string    `json:"score"`
	Opponent string    `json:"opponent"`
	PlayedAt time.Time `json:"played_at"`
}

type teamFormDTO struct {
	Team    string           `json:"team"`
	Results []matchResultDTO `json:"results"`
}

func matchResultToDTO(result history.MatchResult) matchResultDTO {
	return matchResultDTO{
		Result:   result.Result,
		Score:    result.Score,
		Opponent: result.Opponent,
		// Provider timestamps are epoch seconds.
		PlayedAt: time.Unix(result.Timestamp, 0),
	}
}

type chatResponseDTO struct {
	Answer string `json:"answer"`
}
