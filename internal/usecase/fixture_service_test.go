package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/betforge/coupon-engine/internal/domain/odds"
)

type stubOddsFetcher struct {
	calls   atomic.Int32
	payload map[string][]byte
	err     error
}

func (f *stubOddsFetcher) FetchOdds(_ context.Context, sportKey string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload[sportKey], nil
}

type stubFixtureParser struct {
	fixtures map[string][]odds.Fixture
}

func (p *stubFixtureParser) ParseFixtures(raw []byte) []odds.Fixture {
	return p.fixtures[string(raw)]
}

func TestFixtureService_FixturesForMemoizes(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)
	fetcher := &stubOddsFetcher{payload: map[string][]byte{"soccer_epl": []byte("epl")}}
	parser := &stubFixtureParser{fixtures: map[string][]odds.Fixture{
		"epl": {{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Kickoff: kickoff}},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewFixtureService(fetcher, parser, time.Minute, logger)

	for i := 0; i < 3; i++ {
		fixtures, err := service.FixturesFor(context.Background(), "soccer_epl")
		if err != nil {
			t.Fatalf("FixturesFor error: %v", err)
		}
		if len(fixtures) != 1 || fixtures[0].HomeTeam != "Arsenal" {
			t.Fatalf("unexpected fixtures: %+v", fixtures)
		}
	}

	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("provider should be hit once, got %d calls", got)
	}
}

func TestFixtureService_FixturesForAllMergesSorted(t *testing.T) {
	t.Parallel()

	early := time.Date(2026, time.March, 14, 15, 0, 0, 0, time.UTC)
	late := early.Add(5 * time.Hour)

	fetcher := &stubOddsFetcher{payload: map[string][]byte{
		"soccer_epl":  []byte("epl"),
		"soccer_laliga": []byte("laliga"),
	}}
	parser := &stubFixtureParser{fixtures: map[string][]odds.Fixture{
		"epl":    {{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Kickoff: late}},
		"laliga": {{HomeTeam: "Girona", AwayTeam: "Betis", Kickoff: early}},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewFixtureService(fetcher, parser, time.Minute, logger)

	fixtures, err := service.FixturesForAll(context.Background(), []string{"soccer_epl", "soccer_laliga"})
	if err != nil {
		t.Fatalf("FixturesForAll error: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("expected merged fixtures from both leagues, got %d", len(fixtures))
	}
	if fixtures[0].HomeTeam != "Girona" {
		t.Fatalf("fixtures should be ordered by kickoff, got %s first", fixtures[0].HomeTeam)
	}
}

func TestFixtureService_FixturesForAllFailsWhenAllLeaguesFail(t *testing.T) {
	t.Parallel()

	fetcher := &stubOddsFetcher{err: errors.New("provider down")}
	parser := &stubFixtureParser{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewFixtureService(fetcher, parser, time.Minute, logger)

	_, err := service.FixturesForAll(context.Background(), []string{"soccer_epl", "soccer_laliga"})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}

	_, err = service.FixturesForAll(context.Background(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty league list, got %v", err)
	}
}
