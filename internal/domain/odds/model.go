package odds

import "time"

const (
	MarketH2H    = "h2h"
	MarketTotals = "totals"
)

// Outcome is one priced selection inside a fixture market.
// Line is set only for totals markets (the goal threshold).
type Outcome struct {
	Label string
	Price float64
	Line  *float64
}

// Fixture represents one upstream event with its deduplicated outcomes,
// at most one bookmaker's h2h set and one bookmaker's totals set.
type Fixture struct {
	HomeTeam   string
	AwayTeam   string
	SportTitle string
	Kickoff    time.Time
	Outcomes   []Outcome
}

// Key identifies a fixture inside a coupon. The exact "home vs away"
// string is also what legs display, so it doubles as the dedupe key.
func (f Fixture) Key() string {
	return f.HomeTeam + " vs " + f.AwayTeam
}
