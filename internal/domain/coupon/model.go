package coupon

import (
	"time"

	"github.com/betforge/coupon-engine/internal/domain/odds"
)

// Leg is one selected outcome inside an assembled coupon. Label is the
// engine's composite display string; FixtureKey is the dedupe key.
type Leg struct {
	FixtureKey string
	Label      string
	Price      float64
	Line       *float64
	Score      float64
	BTTSPct    int
	Kickoff    time.Time
}

// Coupon is an ordered slip of legs. An empty slip is a valid result,
// not an error.
type Coupon struct {
	Legs        []Leg
	CombinedOdd float64
	TargetOdd   float64
	Risk        odds.RiskLevel
}

const (
	ClassificationHigh   = "HIGH"
	ClassificationMedium = "MEDIUM"
	ClassificationLow    = "LOW"
)

// AnalysisRow is one line of the read-only BTTS ranking.
type AnalysisRow struct {
	HomeTeam       string
	AwayTeam       string
	Kickoff        time.Time
	BTTSPct        int
	ExpectedGoals  float64
	Classification string
}
