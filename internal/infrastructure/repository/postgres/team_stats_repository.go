package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/betforge/coupon-engine/internal/domain/stats"
)

type teamStatsRow struct {
	TeamName      string  `db:"team_name"`
	AvgTotalGoals float64 `db:"avg_total_goals"`
	BTTSRate      float64 `db:"btts_rate"`
	WinRate       float64 `db:"win_rate"`
}

// TeamStatsRepository reads the team_stats table once at construction and
// serves lookups from memory; the table is static reference data, so the
// hot path stays free of database round-trips.
type TeamStatsRepository struct {
	byName map[string]stats.TeamStats
}

func NewTeamStatsRepository(ctx context.Context, db *sqlx.DB) (*TeamStatsRepository, error) {
	const query = `SELECT team_name, avg_total_goals, btts_rate, win_rate FROM team_stats`

	var rows []teamStatsRow
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load team stats table: %w", err)
	}

	byName := make(map[string]stats.TeamStats, len(rows))
	for _, row := range rows {
		byName[stats.NormalizeName(row.TeamName)] = stats.TeamStats{
			AvgTotalGoals: row.AvgTotalGoals,
			BTTSRate:      row.BTTSRate,
			WinRate:       row.WinRate,
		}
	}

	return &TeamStatsRepository{byName: byName}, nil
}

func (r *TeamStatsRepository) StatsFor(name string) stats.TeamStats {
	if row, ok := r.byName[stats.NormalizeName(name)]; ok {
		return row
	}
	return stats.Default()
}
