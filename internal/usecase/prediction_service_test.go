package usecase

import (
	"math"
	"testing"

	"github.com/betforge/coupon-engine/internal/domain/stats"
)

type stubStatsRepository struct {
	teams map[string]stats.TeamStats
}

func (r *stubStatsRepository) StatsFor(name string) stats.TeamStats {
	if s, ok := r.teams[stats.NormalizeName(name)]; ok {
		return s
	}
	return stats.Default()
}

func TestPredictionService_BTTSProbability(t *testing.T) {
	t.Parallel()

	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"liverpool": {AvgTotalGoals: 3.0, BTTSRate: 0.6, WinRate: 0.8},
		"fulham":    {AvgTotalGoals: 2.0, BTTSRate: 0.4, WinRate: 0.3},
	}}
	service := NewPredictionService(repo)

	got := service.BTTSProbability("Liverpool", "Fulham")

	// 0.7*(1-e^-1.5)(1-e^-1.0) + 0.3*0.5
	want := 0.7*(1-math.Exp(-1.5))*(1-math.Exp(-1.0)) + 0.15
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("unexpected btts probability: got=%.6f want=%.6f", got, want)
	}
	if math.Abs(got-0.4938) > 0.001 {
		t.Fatalf("probability drifted from reference value: got=%.6f", got)
	}
}

func TestPredictionService_BTTSProbabilityBounds(t *testing.T) {
	t.Parallel()

	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"goalfest":  {AvgTotalGoals: 9.0, BTTSRate: 1.0, WinRate: 0.9},
		"stonewall": {AvgTotalGoals: 0.0, BTTSRate: 0.0, WinRate: 0.1},
	}}
	service := NewPredictionService(repo)

	high := service.BTTSProbability("Goalfest", "Goalfest")
	low := service.BTTSProbability("Stonewall", "Stonewall")

	if high <= 0 || high >= 1 {
		t.Fatalf("probability out of open bounds for high-scoring pair: %.6f", high)
	}
	if low < 0 || low >= 1 {
		t.Fatalf("probability out of bounds for goalless pair: %.6f", low)
	}
	if low >= high {
		t.Fatalf("goalless pair should not outscore goalfest: low=%.6f high=%.6f", low, high)
	}
}

func TestPredictionService_ExpectedGoalsSymmetric(t *testing.T) {
	t.Parallel()

	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"arsenal": {AvgTotalGoals: 3.2, BTTSRate: 0.55, WinRate: 0.7},
		"burnley": {AvgTotalGoals: 1.8, BTTSRate: 0.35, WinRate: 0.2},
	}}
	service := NewPredictionService(repo)

	ab := service.ExpectedGoals("Arsenal", "Burnley")
	ba := service.ExpectedGoals("Burnley", "Arsenal")

	if ab != ba {
		t.Fatalf("expected goals should be order independent: %.3f vs %.3f", ab, ba)
	}
	if math.Abs(ab-2.5) > 1e-9 {
		t.Fatalf("unexpected mean: got=%.3f want=2.5", ab)
	}
}

func TestPredictionService_UnknownTeamUsesDefaults(t *testing.T) {
	t.Parallel()

	service := NewPredictionService(&stubStatsRepository{teams: map[string]stats.TeamStats{}})

	got := service.StatsFor("Nonexistent United")
	if got != stats.Default() {
		t.Fatalf("unknown team should resolve to league defaults: %+v", got)
	}
}
