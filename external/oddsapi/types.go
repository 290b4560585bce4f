package oddsapi

// Wire types for the odds provider payload. Only the fields the catalog
// reads are declared; everything else is ignored on decode.

type rawOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point"`
}

type rawMarket struct {
	Key      string       `json:"key"`
	Outcomes []rawOutcome `json:"outcomes"`
}

type rawBookmaker struct {
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Markets []rawMarket `json:"markets"`
}

type rawGame struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	CommenceTime string         `json:"commence_time"`
	Bookmakers   []rawBookmaker `json:"bookmakers"`
}

// errorEnvelope is what the provider returns instead of an array when a
// request fails (bad key, quota exhausted). Its presence short-circuits
// parsing.
type errorEnvelope struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}
