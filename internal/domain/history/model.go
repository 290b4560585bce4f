package history

import "strings"

// UnresolvedTeamID is the sentinel for a team the provider could not find.
// Misses are never cached; every call re-attempts resolution.
const UnresolvedTeamID int64 = -1

const (
	ResultWin  = "W"
	ResultDraw = "D"
	ResultLoss = "L"
)

// MatchResult is one finished match seen from the queried team's side.
type MatchResult struct {
	Result    string `json:"res"`
	Score     string `json:"score"`
	Opponent  string `json:"opp"`
	Timestamp int64  `json:"ts"`
}

// ResultFor classifies a final score relative to the queried team.
func ResultFor(homeGoals, awayGoals int, queriedIsHome bool) string {
	switch {
	case homeGoals == awayGoals:
		return ResultDraw
	case queriedIsHome == (homeGoals > awayGoals):
		return ResultWin
	default:
		return ResultLoss
	}
}

// FormKey normalizes a team name into the cache key both persisted maps use.
func FormKey(team string) string {
	return strings.ToLower(strings.TrimSpace(team))
}
