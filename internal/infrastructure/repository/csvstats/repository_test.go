package csvstats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/betforge/coupon-engine/internal/domain/stats"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

func writeStatsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write stats file: %v", err)
	}
	return path
}

func TestRepositoryLookupAndFallback(t *testing.T) {
	t.Parallel()

	path := writeStatsFile(t, "team,avg_total_goals,btts_rate,win_rate\nFC Barcelona,3.1,0.62,0.71\nArsenal,2.8,0.55,0.66\nbroken,row\n")
	repo := NewRepository(path, logging.NewNop())

	got := repo.StatsFor("Barcelona")
	if got.AvgTotalGoals != 3.1 || got.WinRate != 0.71 {
		t.Fatalf("unexpected stats for Barcelona: %+v", got)
	}

	// Unknown team resolves to the league average, never an error.
	if got := repo.StatsFor("Unknown United"); got != stats.Default() {
		t.Fatalf("expected default stats, got %+v", got)
	}
}

func TestRepositoryMissingFile(t *testing.T) {
	t.Parallel()

	repo := NewRepository(filepath.Join(t.TempDir(), "absent.csv"), logging.NewNop())
	if got := repo.StatsFor("Arsenal"); got != stats.Default() {
		t.Fatalf("expected default stats with missing table, got %+v", got)
	}
}
