package stats

import "strings"

// TeamStats holds the static per-team table row the probability model
// works from. Values are immutable once loaded.
type TeamStats struct {
	AvgTotalGoals float64
	BTTSRate      float64
	WinRate       float64
}

// Default is the league-average fallback used when a team is unknown.
func Default() TeamStats {
	return TeamStats{AvgTotalGoals: 2.5, BTTSRate: 0.50, WinRate: 0.35}
}

// Club-name tokens that vary between providers and stats sources.
// Stripping them is a fuzzy heuristic, not an exact identity resolver;
// upstream spellings differ by design.
var clubTokens = []string{"fc ", " fc", "cf ", "ac ", "as ", "real ", "sporting ", "inter "}

// NormalizeName lower-cases a team name and strips common club tokens so
// odds-provider and stats-table spellings land on the same key. The
// function is idempotent.
func NormalizeName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, token := range clubTokens {
		key = strings.ReplaceAll(key, token, "")
	}
	return strings.TrimSpace(key)
}
