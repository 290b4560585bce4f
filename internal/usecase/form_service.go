package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/betforge/coupon-engine/internal/domain/history"
)

// HistoryProvider resolves team identities and recent finished results.
type HistoryProvider interface {
	SearchTeamID(ctx context.Context, name string) (int64, error)
	FetchFinishedResults(ctx context.Context, teamID int64, season int) ([]history.MatchResult, error)
}

// IdentityStore caches team-name to provider-ID resolutions. Entries
// never expire; unresolved names are never stored.
type IdentityStore interface {
	Lookup(key string) (int64, bool)
	Put(key string, id int64)
}

// FormStore caches recent-results lists with a TTL.
type FormStore interface {
	Get(key string) ([]history.MatchResult, bool)
	Put(key string, results []history.MatchResult)
}

// FormService answers "how has this team been doing lately". Every
// failure mode degrades to an empty list: a missing form line should
// never block coupon generation.
type FormService struct {
	provider   HistoryProvider
	identities IdentityStore
	forms      FormStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewFormService(provider HistoryProvider, identities IdentityStore, forms FormStore, logger *slog.Logger) *FormService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormService{
		provider:   provider,
		identities: identities,
		forms:      forms,
		logger:     logger,
		now:        time.Now,
	}
}

// TeamForm returns up to the five most recent finished results for the
// team, newest first. It checks the form cache, resolves the provider
// identity, queries the current season, and falls back once to the
// previous season when the current one has no finished fixtures yet.
func (s *FormService) TeamForm(ctx context.Context, teamName string) []history.MatchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.FormService.TeamForm")
	defer span.End()

	key := history.FormKey(teamName)
	if key == "" {
		return nil
	}

	if results, ok := s.forms.Get(key); ok {
		return results
	}

	teamID, ok := s.resolveIdentity(ctx, key, teamName)
	if !ok {
		return nil
	}

	season := s.currentSeason()
	results, err := s.provider.FetchFinishedResults(ctx, teamID, season)
	if err != nil {
		s.logger.WarnContext(ctx, "history fetch failed", "team", teamName, "season", season, "error", err)
		return nil
	}
	if len(results) == 0 {
		// Early in a campaign the current season has nothing finished
		// yet. One fallback hop, never a loop.
		results, err = s.provider.FetchFinishedResults(ctx, teamID, season-1)
		if err != nil {
			s.logger.WarnContext(ctx, "history fallback fetch failed", "team", teamName, "season", season-1, "error", err)
			return nil
		}
	}

	s.forms.Put(key, results)
	return results
}

// Prefetch warms the form cache for a batch of team names using a bounded
// worker pool, so coupon generation does not pay the resolution latency.
func (s *FormService) Prefetch(ctx context.Context, teamNames []string, workerCount int) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FormService.Prefetch")
	defer span.End()

	if len(teamNames) == 0 {
		return
	}
	if workerCount < 1 {
		workerCount = 1
	}

	workers, err := ants.NewPool(workerCount)
	if err != nil {
		s.logger.WarnContext(ctx, "prefetch pool unavailable", "error", err)
		return
	}
	defer workers.Release()

	var wg sync.WaitGroup
	for _, name := range teamNames {
		name := name
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			s.TeamForm(ctx, name)
		}); err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "prefetch submit failed", "team", name, "error", err)
		}
	}
	wg.Wait()
}

func (s *FormService) resolveIdentity(ctx context.Context, key, teamName string) (int64, bool) {
	if id, ok := s.identities.Lookup(key); ok {
		return id, id != history.UnresolvedTeamID
	}

	id, err := s.provider.SearchTeamID(ctx, teamName)
	if err != nil {
		s.logger.WarnContext(ctx, "team identity search failed", "team", teamName, "error", err)
		return 0, false
	}
	if id == history.UnresolvedTeamID {
		// A miss is not persisted; the provider may learn the team later.
		s.logger.DebugContext(ctx, "team identity unresolved", "team", teamName)
		return 0, false
	}

	s.identities.Put(key, id)
	return id, true
}

// currentSeason maps a calendar date to the European season label: a
// season is named after the year it starts in, so January–June belongs
// to the previous year's season.
func (s *FormService) currentSeason() int {
	ts := s.now()
	year := ts.Year()
	if ts.Month() < time.July {
		return year - 1
	}
	return year
}
