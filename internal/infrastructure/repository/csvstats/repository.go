package csvstats

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/betforge/coupon-engine/internal/domain/stats"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

// Repository serves team statistics from a CSV table loaded once at
// construction. Layout: team,avg_total_goals,btts_rate,win_rate with a
// header row. Bad rows are skipped; a missing file leaves the table
// empty and every lookup falls back to the league average.
type Repository struct {
	byName map[string]stats.TeamStats
	logger *logging.Logger
}

func NewRepository(path string, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.Default()
	}

	r := &Repository{
		byName: make(map[string]stats.TeamStats),
		logger: logger,
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("stats table not found, every team falls back to league average", "path", path, "error", err)
		return r
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skip unreadable stats row", "error", err)
			continue
		}
		if header {
			header = false
			continue
		}
		if len(record) < 4 {
			continue
		}

		avgGoals, err1 := strconv.ParseFloat(record[1], 64)
		bttsRate, err2 := strconv.ParseFloat(record[2], 64)
		winRate, err3 := strconv.ParseFloat(record[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		r.byName[stats.NormalizeName(record[0])] = stats.TeamStats{
			AvgTotalGoals: avgGoals,
			BTTSRate:      bttsRate,
			WinRate:       winRate,
		}
	}

	logger.Info("team stats table loaded", "path", path, "teams", len(r.byName))
	return r
}

func (r *Repository) StatsFor(name string) stats.TeamStats {
	if row, ok := r.byName[stats.NormalizeName(name)]; ok {
		return row
	}
	return stats.Default()
}
