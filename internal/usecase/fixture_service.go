package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/betforge/coupon-engine/internal/domain/odds"
	"github.com/betforge/coupon-engine/internal/platform/cache"
)

// OddsFetcher returns the raw provider payload for one sport key.
type OddsFetcher interface {
	FetchOdds(ctx context.Context, sportKey string) ([]byte, error)
}

// FixtureParser turns a raw payload into normalized fixtures.
type FixtureParser interface {
	ParseFixtures(raw []byte) []odds.Fixture
}

// FixtureService fetches and parses fixtures for one or many leagues.
// Parsed results are memoized so repeated requests within the window skip
// both the provider and the disk cache.
type FixtureService struct {
	fetcher OddsFetcher
	parser  FixtureParser
	parsed  *cache.Store
	logger  *slog.Logger
}

func NewFixtureService(fetcher OddsFetcher, parser FixtureParser, memoTTL time.Duration, logger *slog.Logger) *FixtureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FixtureService{
		fetcher: fetcher,
		parser:  parser,
		parsed:  cache.NewStore(memoTTL),
		logger:  logger,
	}
}

// FixturesFor returns the fixtures for a single league key.
func (s *FixtureService) FixturesFor(ctx context.Context, sportKey string) ([]odds.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.FixturesFor")
	defer span.End()

	if sportKey == "" {
		return nil, fmt.Errorf("%w: sport key is required", ErrInvalidInput)
	}

	value, err := s.parsed.GetOrLoad(ctx, sportKey, func(ctx context.Context) (any, error) {
		raw, err := s.fetcher.FetchOdds(ctx, sportKey)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch odds for %s: %v", ErrDependencyUnavailable, sportKey, err)
		}
		return s.parser.ParseFixtures(raw), nil
	})
	if err != nil {
		return nil, err
	}

	fixtures, ok := value.([]odds.Fixture)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value for %s", sportKey)
	}
	return fixtures, nil
}

// FixturesForAll fans out across league keys concurrently and merges the
// results ordered by kickoff. A league that fails is logged and skipped;
// the call only errors when every league fails.
func (s *FixtureService) FixturesForAll(ctx context.Context, sportKeys []string) ([]odds.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.FixturesForAll")
	defer span.End()

	if len(sportKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one sport key is required", ErrInvalidInput)
	}

	workers := pool.NewWithResults[[]odds.Fixture]().WithContext(ctx)
	for _, sportKey := range sportKeys {
		sportKey := sportKey
		workers.Go(func(ctx context.Context) ([]odds.Fixture, error) {
			fixtures, err := s.FixturesFor(ctx, sportKey)
			if err != nil {
				s.logger.WarnContext(ctx, "league fetch failed, skipping", "sportKey", sportKey, "error", err)
				return nil, nil
			}
			return fixtures, nil
		})
	}

	batches, err := workers.Wait()
	if err != nil {
		return nil, err
	}

	var merged []odds.Fixture
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: no fixtures available for requested leagues", ErrDependencyUnavailable)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Kickoff.Before(merged[j].Kickoff)
	})
	return merged, nil
}
