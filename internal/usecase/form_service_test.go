package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/betforge/coupon-engine/internal/domain/history"
)

func fixedClock(year int, month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, 14, 12, 0, 0, 0, time.UTC)
	}
}

type stubHistoryProvider struct {
	mu        sync.Mutex
	ids       map[string]int64
	seasons   map[int][]history.MatchResult
	searchErr error
	fetchErr  error
	fetches   []int
}

func (p *stubHistoryProvider) SearchTeamID(_ context.Context, name string) (int64, error) {
	if p.searchErr != nil {
		return 0, p.searchErr
	}
	if id, ok := p.ids[name]; ok {
		return id, nil
	}
	return history.UnresolvedTeamID, nil
}

func (p *stubHistoryProvider) FetchFinishedResults(_ context.Context, _ int64, season int) ([]history.MatchResult, error) {
	p.mu.Lock()
	p.fetches = append(p.fetches, season)
	p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.seasons[season], nil
}

type memIdentityStore struct {
	mu      sync.Mutex
	entries map[string]int64
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{entries: make(map[string]int64)}
}

func (s *memIdentityStore) Lookup(key string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[key]
	return id, ok
}

func (s *memIdentityStore) Put(key string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = id
}

type memFormStore struct {
	mu      sync.Mutex
	entries map[string][]history.MatchResult
}

func newMemFormStore() *memFormStore {
	return &memFormStore{entries: make(map[string][]history.MatchResult)}
}

func (s *memFormStore) Get(key string) ([]history.MatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results, ok := s.entries[key]
	return results, ok
}

func (s *memFormStore) Put(key string, results []history.MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = results
}

func newFormTestService(provider *stubHistoryProvider, identities *memIdentityStore, forms *memFormStore) *FormService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFormService(provider, identities, forms, logger)
}

func TestFormService_TeamFormCachesAndResolves(t *testing.T) {
	t.Parallel()

	wins := []history.MatchResult{{Result: history.ResultWin, Score: "2:0", Opponent: "Everton"}}
	provider := &stubHistoryProvider{
		ids:     map[string]int64{"Liverpool": 40},
		seasons: map[int][]history.MatchResult{2025: wins},
	}
	identities := newMemIdentityStore()
	forms := newMemFormStore()
	service := newFormTestService(provider, identities, forms)
	service.now = fixedClock(2026, 3) // March 2026 is season 2025

	got := service.TeamForm(context.Background(), "Liverpool")
	if len(got) != 1 || got[0].Result != history.ResultWin {
		t.Fatalf("unexpected form: %+v", got)
	}

	if id, ok := identities.Lookup(history.FormKey("Liverpool")); !ok || id != 40 {
		t.Fatalf("identity should be persisted, got id=%d ok=%v", id, ok)
	}
	if _, ok := forms.Get(history.FormKey("Liverpool")); !ok {
		t.Fatal("form should be persisted")
	}

	// Second call is served from the form store.
	before := len(provider.fetches)
	service.TeamForm(context.Background(), "Liverpool")
	if len(provider.fetches) != before {
		t.Fatal("cached form should not hit the provider")
	}
}

func TestFormService_SeasonFallbackSingleHop(t *testing.T) {
	t.Parallel()

	previous := []history.MatchResult{{Result: history.ResultDraw, Score: "1:1", Opponent: "Fulham"}}
	provider := &stubHistoryProvider{
		ids:     map[string]int64{"Leeds": 63},
		seasons: map[int][]history.MatchResult{2024: previous},
	}
	service := newFormTestService(provider, newMemIdentityStore(), newMemFormStore())
	service.now = fixedClock(2026, 3)

	got := service.TeamForm(context.Background(), "Leeds")
	if len(got) != 1 || got[0].Result != history.ResultDraw {
		t.Fatalf("expected previous-season results, got %+v", got)
	}
	if len(provider.fetches) != 2 || provider.fetches[0] != 2025 || provider.fetches[1] != 2024 {
		t.Fatalf("expected exactly one fallback hop, fetched seasons %v", provider.fetches)
	}
}

func TestFormService_UnresolvedTeamNotCached(t *testing.T) {
	t.Parallel()

	provider := &stubHistoryProvider{ids: map[string]int64{}}
	identities := newMemIdentityStore()
	service := newFormTestService(provider, identities, newMemFormStore())

	got := service.TeamForm(context.Background(), "Phantom FC")
	if len(got) != 0 {
		t.Fatalf("unresolved team should yield empty form, got %+v", got)
	}
	if _, ok := identities.Lookup(history.FormKey("Phantom FC")); ok {
		t.Fatal("unresolved identities must not be persisted")
	}
}

func TestFormService_ProviderFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	provider := &stubHistoryProvider{
		ids:      map[string]int64{"Milan": 489},
		fetchErr: errors.New("rate limited"),
	}
	forms := newMemFormStore()
	service := newFormTestService(provider, newMemIdentityStore(), forms)

	got := service.TeamForm(context.Background(), "Milan")
	if got != nil {
		t.Fatalf("failure should degrade to empty form, got %+v", got)
	}
	if _, ok := forms.Get(history.FormKey("Milan")); ok {
		t.Fatal("failed lookups must not be persisted")
	}
}

func TestFormService_PrefetchWarmsCache(t *testing.T) {
	t.Parallel()

	provider := &stubHistoryProvider{
		ids: map[string]int64{"Ajax": 194, "PSV": 197},
		seasons: map[int][]history.MatchResult{
			2025: {{Result: history.ResultWin, Score: "3:1", Opponent: "Twente"}},
		},
	}
	forms := newMemFormStore()
	service := newFormTestService(provider, newMemIdentityStore(), forms)
	service.now = fixedClock(2026, 3)

	service.Prefetch(context.Background(), []string{"Ajax", "PSV"}, 2)

	for _, team := range []string{"Ajax", "PSV"} {
		if _, ok := forms.Get(history.FormKey(team)); !ok {
			t.Fatalf("prefetch should warm form for %s", team)
		}
	}
}
