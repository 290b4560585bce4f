package apifootball

// Wire types for the history provider. Responses are keyed by a top-level
// "response" array regardless of endpoint.

type teamSearchEnvelope struct {
	Response []struct {
		Team struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"team"`
	} `json:"response"`
}

type fixturesEnvelope struct {
	Response []fixtureItem `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID        int64 `json:"id"`
		Timestamp int64 `json:"timestamp"`
		Status    struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
	Teams struct {
		Home struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
}
