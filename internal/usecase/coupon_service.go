package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/betforge/coupon-engine/internal/domain/coupon"
	"github.com/betforge/coupon-engine/internal/domain/odds"
)

const (
	// Candidates below this safety score are never worth a leg.
	retentionThreshold = 0.65

	// The running payout may overshoot the target by 25% and the slip is
	// complete once it reaches 95% of it.
	payoutCeilingFactor = 1.25
	payoutTargetFactor  = 0.95

	eligibilityWindowDays = 2
)

// CouponService scores every eligible outcome and greedily assembles a
// slip bounded by the target payout.
type CouponService struct {
	predictions *PredictionService
	logger      *slog.Logger
	now         func() time.Time
}

func NewCouponService(predictions *PredictionService, logger *slog.Logger) *CouponService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CouponService{
		predictions: predictions,
		logger:      logger,
		now:         time.Now,
	}
}

type scoredCandidate struct {
	fixture odds.Fixture
	outcome odds.Outcome
	score   float64
}

// GenerateCoupon builds an ordered slip from the given fixtures. An empty
// slip is a valid result when no candidate clears the retention threshold
// or fits under the payout ceiling.
func (s *CouponService) GenerateCoupon(ctx context.Context, fixtures []odds.Fixture, targetOdd float64, risk odds.RiskLevel) (coupon.Coupon, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CouponService.GenerateCoupon")
	defer span.End()

	if targetOdd <= 1.0 {
		return coupon.Coupon{}, fmt.Errorf("%w: target odd must be greater than 1.0", ErrInvalidInput)
	}
	if _, err := odds.ParseRiskLevel(string(risk)); err != nil {
		return coupon.Coupon{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	candidates := s.collectCandidates(fixtures, risk)
	s.logger.InfoContext(ctx, "coupon candidates collected",
		"fixtures", len(fixtures), "candidates", len(candidates), "risk", string(risk))

	// Ordering is fixed: collect, sort, then greedy selection. The sort is
	// stable so identical inputs produce identical slips run to run.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	return s.assembleSlip(candidates, targetOdd, risk), nil
}

func (s *CouponService) collectCandidates(fixtures []odds.Fixture, risk odds.RiskLevel) []scoredCandidate {
	today := dateOf(s.now())
	lastDay := today.AddDate(0, 0, eligibilityWindowDays)

	var candidates []scoredCandidate
	for _, fixture := range fixtures {
		matchDate := dateOf(fixture.Kickoff)
		if matchDate.Before(today) || matchDate.After(lastDay) {
			continue
		}

		for _, outcome := range fixture.Outcomes {
			if !risk.PriceInRange(outcome.Price) {
				continue
			}

			score := s.scoreOutcome(fixture, outcome, risk)
			if score > retentionThreshold {
				candidates = append(candidates, scoredCandidate{fixture: fixture, outcome: outcome, score: score})
			}
		}
	}
	return candidates
}

// scoreOutcome computes the per-outcome safety score. The multiplicative
// boosts are empirically tuned coefficients, kept as documented values.
func (s *CouponService) scoreOutcome(fixture odds.Fixture, outcome odds.Outcome, risk odds.RiskLevel) float64 {
	price := outcome.Price
	label := strings.ToLower(outcome.Label)

	baseScore := 0.0

	switch {
	case labelMatchesTeam(label, fixture.HomeTeam) || labelMatchesTeam(label, fixture.AwayTeam):
		// Moneyline bet on one of the sides.
		isHome := labelMatchesTeam(label, fixture.HomeTeam)
		team := fixture.AwayTeam
		if isHome {
			team = fixture.HomeTeam
		}

		winRate := s.predictions.WinRate(team)
		expectedValue := winRate * price

		switch {
		case winRate > 0.70:
			baseScore = expectedValue * 1.5 // reward high-confidence favorites
		case price > 3.0:
			baseScore = expectedValue * 0.5 // penalize longshots
		default:
			baseScore = expectedValue * 1.1
		}

		if isHome && winRate > 0.60 {
			baseScore *= 1.1 // home-advantage bonus
		}

	case strings.HasPrefix(label, "over") && outcome.Line != nil:
		line := *outcome.Line
		predictedGoals := s.predictions.ExpectedGoals(fixture.HomeTeam, fixture.AwayTeam)
		bttsProb := s.predictions.BTTSProbability(fixture.HomeTeam, fixture.AwayTeam)

		switch {
		case line >= 2.0 && line <= 2.75:
			goalFactor := (predictedGoals/2.5)*0.6 + bttsProb*0.4
			baseScore = goalFactor * price
			if risk == odds.RiskSafe {
				baseScore *= 0.9
			}
		case line < 2.0:
			baseScore = (predictedGoals / 1.5) * price * 0.4
		case line >= 3.0 && predictedGoals > 3.5:
			baseScore = (predictedGoals / line) * price * 0.7
		}
		// Other line configurations stay at 0 and are discarded.
	}

	// Safety amplification: very short prices get boosted so they surface
	// ahead of nominally higher expected values. Both multipliers stack
	// for prices at or under 1.35.
	if baseScore > 0 {
		if price <= 1.35 {
			baseScore *= 1.7
		}
		if price <= 1.60 {
			baseScore *= 1.3
		}
	}

	return baseScore
}

func (s *CouponService) assembleSlip(candidates []scoredCandidate, targetOdd float64, risk odds.RiskLevel) coupon.Coupon {
	out := coupon.Coupon{TargetOdd: targetOdd, Risk: risk, CombinedOdd: 1.0}
	used := make(map[string]bool)

	for _, candidate := range candidates {
		key := candidate.fixture.Key()
		if used[key] {
			continue // one leg per fixture
		}
		if out.CombinedOdd*candidate.outcome.Price > targetOdd*payoutCeilingFactor {
			continue
		}

		bttsProb := s.predictions.BTTSProbability(candidate.fixture.HomeTeam, candidate.fixture.AwayTeam)
		bttsPct := int(bttsProb * 100)

		out.Legs = append(out.Legs, coupon.Leg{
			FixtureKey: key,
			Label:      formatLegLabel(candidate, bttsPct),
			Price:      candidate.outcome.Price,
			Line:       candidate.outcome.Line,
			Score:      candidate.score,
			BTTSPct:    bttsPct,
			Kickoff:    candidate.fixture.Kickoff,
		})
		out.CombinedOdd *= candidate.outcome.Price
		used[key] = true

		if out.CombinedOdd >= targetOdd*payoutTargetFactor {
			break
		}
	}

	return out
}

// formatLegLabel renders the composite display string:
// "<home> vs <away> (<date>) [<outcome>[ <line>][  {marker}]] [BTTS: N%]".
func formatLegLabel(candidate scoredCandidate, bttsPct int) string {
	display := candidate.outcome.Label
	if candidate.outcome.Line != nil {
		display += " " + strconv.FormatFloat(*candidate.outcome.Line, 'g', -1, 64)
	}

	switch {
	case candidate.outcome.Price < 1.40:
		display += "  {super safe}"
	case strings.Contains(display, "Over 2.5") && candidate.score > 3.0:
		display += "  {high goals}"
	}

	return fmt.Sprintf("%s (%s) [%s] [BTTS: %d%%]",
		candidate.fixture.Key(),
		candidate.fixture.Kickoff.Format("2006-01-02"),
		display,
		bttsPct,
	)
}

// labelMatchesTeam applies the fuzzy moneyline heuristic: exact match or
// substring containment either direction, case-insensitive. Provider
// spellings vary, so this intentionally stays loose.
func labelMatchesTeam(lowerLabel, team string) bool {
	t := strings.ToLower(team)
	return lowerLabel == t || strings.Contains(t, lowerLabel) || strings.Contains(lowerLabel, t)
}

func dateOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
