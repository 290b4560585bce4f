package usecase

import (
	"math"

	"github.com/betforge/coupon-engine/internal/domain/stats"
)

// PredictionService derives fixture-level expectations from two teams'
// static statistics. All methods are pure functions of the stats table;
// no hidden state, no I/O.
type PredictionService struct {
	statsRepo stats.Repository
}

func NewPredictionService(statsRepo stats.Repository) *PredictionService {
	return &PredictionService{statsRepo: statsRepo}
}

func (s *PredictionService) StatsFor(team string) stats.TeamStats {
	return s.statsRepo.StatsFor(team)
}

func (s *PredictionService) WinRate(team string) float64 {
	return s.statsRepo.StatsFor(team).WinRate
}

// ExpectedGoals predicts the match goal total as the mean of both teams'
// average-total-goals stats. Symmetric in its arguments.
func (s *PredictionService) ExpectedGoals(home, away string) float64 {
	h := s.statsRepo.StatsFor(home)
	a := s.statsRepo.StatsFor(away)
	return (h.AvgTotalGoals + a.AvgTotalGoals) / 2.0
}

// BTTSProbability estimates the both-teams-to-score probability by
// blending a Poisson-derived component with the historical BTTS rates:
// per-team scoring intensity λ = avgTotalGoals/2, Poisson component
// (1−e^−λh)(1−e^−λa), weighted 0.7 against 0.3 historical.
func (s *PredictionService) BTTSProbability(home, away string) float64 {
	h := s.statsRepo.StatsFor(home)
	a := s.statsRepo.StatsFor(away)

	homeLambda := h.AvgTotalGoals / 2.0
	awayLambda := a.AvgTotalGoals / 2.0

	pHomeScores := 1.0 - math.Exp(-homeLambda)
	pAwayScores := 1.0 - math.Exp(-awayLambda)

	poisson := pHomeScores * pAwayScores
	historical := (h.BTTSRate + a.BTTSRate) / 2.0

	return 0.7*poisson + 0.3*historical
}
