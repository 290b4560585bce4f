package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/betforge/coupon-engine/internal/domain/coupon"
	"github.com/betforge/coupon-engine/internal/domain/odds"
	"github.com/betforge/coupon-engine/internal/domain/stats"
)

func TestAnalysisService_AnalyzeClassifiesAndSorts(t *testing.T) {
	t.Parallel()

	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"leverkusen": {AvgTotalGoals: 3.8, BTTSRate: 0.8, WinRate: 0.7},
		"frankfurt":  {AvgTotalGoals: 3.4, BTTSRate: 0.7, WinRate: 0.5},
		"getafe":     {AvgTotalGoals: 1.4, BTTSRate: 0.2, WinRate: 0.3},
		"cadiz":      {AvgTotalGoals: 1.2, BTTSRate: 0.2, WinRate: 0.2},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnalysisService(NewPredictionService(repo), logger)
	service.now = fixedClock(2026, 3)

	kickoff := time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC)
	fixtures := []odds.Fixture{
		{HomeTeam: "Getafe", AwayTeam: "Cadiz", Kickoff: kickoff},
		{HomeTeam: "Leverkusen", AwayTeam: "Frankfurt", Kickoff: kickoff},
	}

	rows := service.Analyze(context.Background(), fixtures)
	if len(rows) != 2 {
		t.Fatalf("expected a row per fixture, got %d", len(rows))
	}
	if rows[0].HomeTeam != "Leverkusen" {
		t.Fatalf("rows should be sorted by BTTS descending, got %s first", rows[0].HomeTeam)
	}
	if rows[0].Classification != coupon.ClassificationHigh {
		t.Fatalf("goal-heavy pairing should classify HIGH, got %s", rows[0].Classification)
	}
	if rows[1].Classification != coupon.ClassificationLow {
		t.Fatalf("goal-shy pairing should classify LOW, got %s", rows[1].Classification)
	}
}

func TestAnalysisService_AnalyzeSkipsFixturesOutsideWindow(t *testing.T) {
	t.Parallel()

	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"leverkusen": {AvgTotalGoals: 3.8, BTTSRate: 0.8, WinRate: 0.7},
		"frankfurt":  {AvgTotalGoals: 3.4, BTTSRate: 0.7, WinRate: 0.5},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnalysisService(NewPredictionService(repo), logger)
	service.now = fixedClock(2026, 3) // 2026-03-14

	fixtures := []odds.Fixture{
		{HomeTeam: "Leverkusen", AwayTeam: "Frankfurt", Kickoff: time.Date(2026, time.March, 13, 20, 0, 0, 0, time.UTC)},
		{HomeTeam: "Leverkusen", AwayTeam: "Frankfurt", Kickoff: time.Date(2026, time.March, 16, 20, 0, 0, 0, time.UTC)},
		{HomeTeam: "Leverkusen", AwayTeam: "Frankfurt", Kickoff: time.Date(2026, time.March, 24, 20, 0, 0, 0, time.UTC)},
	}

	rows := service.Analyze(context.Background(), fixtures)
	if len(rows) != 1 {
		t.Fatalf("only the fixture inside [today, today+2d] should survive, got %d rows", len(rows))
	}
	if !rows[0].Kickoff.Equal(fixtures[1].Kickoff) {
		t.Fatalf("wrong fixture survived the window: %v", rows[0].Kickoff)
	}
}

func TestAnalysisService_AnalyzeOrdersWithinSamePercent(t *testing.T) {
	t.Parallel()

	// Identical goal averages, BTTS rates one point apart: both pairings
	// land on 60% but the raw probabilities differ.
	repo := &stubStatsRepository{teams: map[string]stats.TeamStats{
		"ajax":      {AvgTotalGoals: 3.0, BTTSRate: 0.60, WinRate: 0.5},
		"psv":       {AvgTotalGoals: 3.0, BTTSRate: 0.60, WinRate: 0.5},
		"feyenoord": {AvgTotalGoals: 3.0, BTTSRate: 0.61, WinRate: 0.5},
		"twente":    {AvgTotalGoals: 3.0, BTTSRate: 0.61, WinRate: 0.5},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnalysisService(NewPredictionService(repo), logger)
	service.now = fixedClock(2026, 3)

	kickoff := time.Date(2026, time.March, 15, 16, 0, 0, 0, time.UTC)
	rows := service.Analyze(context.Background(), []odds.Fixture{
		{HomeTeam: "Ajax", AwayTeam: "PSV", Kickoff: kickoff},
		{HomeTeam: "Feyenoord", AwayTeam: "Twente", Kickoff: kickoff},
	})

	if len(rows) != 2 {
		t.Fatalf("expected both rows, got %d", len(rows))
	}
	if rows[0].BTTSPct != rows[1].BTTSPct {
		t.Fatalf("pairings should truncate to the same percent, got %d and %d", rows[0].BTTSPct, rows[1].BTTSPct)
	}
	if rows[0].HomeTeam != "Feyenoord" {
		t.Fatalf("higher raw probability should rank first, got %s", rows[0].HomeTeam)
	}
}

func TestAnalysisService_RenderReport(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnalysisService(NewPredictionService(&stubStatsRepository{}), logger)

	report := service.RenderReport([]coupon.AnalysisRow{{
		HomeTeam:       "Ajax",
		AwayTeam:       "PSV",
		Kickoff:        time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC),
		BTTSPct:        63,
		ExpectedGoals:  3.1,
		Classification: coupon.ClassificationHigh,
	}})

	for _, fragment := range []string{"Ajax vs PSV", "63%", "HIGH", "2026-03-14"} {
		if !strings.Contains(report, fragment) {
			t.Fatalf("report missing %q:\n%s", fragment, report)
		}
	}
}
