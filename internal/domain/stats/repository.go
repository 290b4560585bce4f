package stats

// Repository exposes team statistics lookups. StatsFor is total: unknown
// teams resolve to the league-average Default rather than an error.
type Repository interface {
	StatsFor(name string) TeamStats
}
