package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/betforge/coupon-engine/internal/domain/coupon"
	"github.com/betforge/coupon-engine/internal/domain/odds"
)

// AnalysisService produces a per-fixture both-teams-to-score digest,
// independent of any coupon assembly.
type AnalysisService struct {
	predictions *PredictionService
	logger      *slog.Logger
	now         func() time.Time
}

func NewAnalysisService(predictions *PredictionService, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{predictions: predictions, logger: logger, now: time.Now}
}

// Analyze classifies each eligible fixture by its BTTS probability and
// returns rows ordered from most to least likely. The same kickoff
// window gates the report as gates coupon candidates: fixtures outside
// [today, today+2d] are skipped.
func (s *AnalysisService) Analyze(ctx context.Context, fixtures []odds.Fixture) []coupon.AnalysisRow {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisService.Analyze")
	defer span.End()

	today := dateOf(s.now())
	lastDay := today.AddDate(0, 0, eligibilityWindowDays)

	type rankedRow struct {
		row  coupon.AnalysisRow
		prob float64
	}

	ranked := make([]rankedRow, 0, len(fixtures))
	for _, fixture := range fixtures {
		matchDate := dateOf(fixture.Kickoff)
		if matchDate.Before(today) || matchDate.After(lastDay) {
			continue
		}

		bttsProb := s.predictions.BTTSProbability(fixture.HomeTeam, fixture.AwayTeam)

		classification := coupon.ClassificationMedium
		switch {
		case bttsProb > 0.60:
			classification = coupon.ClassificationHigh
		case bttsProb < 0.45:
			classification = coupon.ClassificationLow
		}

		ranked = append(ranked, rankedRow{
			row: coupon.AnalysisRow{
				HomeTeam:       fixture.HomeTeam,
				AwayTeam:       fixture.AwayTeam,
				Kickoff:        fixture.Kickoff,
				BTTSPct:        int(bttsProb * 100),
				ExpectedGoals:  s.predictions.ExpectedGoals(fixture.HomeTeam, fixture.AwayTeam),
				Classification: classification,
			},
			prob: bttsProb,
		})
	}

	// Rank on the raw probability; the rounded percent would collapse
	// fixtures inside the same percent into input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].prob > ranked[j].prob
	})

	rows := make([]coupon.AnalysisRow, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, r.row)
	}

	s.logger.DebugContext(ctx, "analysis computed", "fixtures", len(fixtures), "rows", len(rows))
	return rows
}

// RenderReport formats rows as a plain-text table for logs and chat prompts.
func (s *AnalysisService) RenderReport(rows []coupon.AnalysisRow) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("BTTS analysis\n")
	for _, row := range rows {
		fmt.Fprintf(buf, "%-6s %3d%%  xG %.2f  %s vs %s (%s)\n",
			row.Classification,
			row.BTTSPct,
			row.ExpectedGoals,
			row.HomeTeam,
			row.AwayTeam,
			row.Kickoff.Format("2006-01-02 15:04"),
		)
	}
	return buf.String()
}
