package oddsapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/betforge/coupon-engine/internal/platform/logging"
)

const samplePayload = `[
  {
    "id": "abc123",
    "sport_title": "EPL",
    "home_team": "Arsenal",
    "away_team": "Chelsea",
    "commence_time": "2026-08-29T14:00:00Z",
    "bookmakers": [
      {
        "key": "betclic_fr",
        "markets": [
          {
            "key": "h2h",
            "outcomes": [
              {"name": "Arsenal", "price": 1.65},
              {"name": "Chelsea", "price": 4.8},
              {"name": "Draw", "price": 3.9}
            ]
          }
        ]
      },
      {
        "key": "pinnacle",
        "markets": [
          {
            "key": "h2h",
            "outcomes": [
              {"name": "Arsenal", "price": 1.70},
              {"name": "Chelsea", "price": 4.9},
              {"name": "Draw", "price": 4.0}
            ]
          },
          {
            "key": "totals",
            "outcomes": [
              {"name": "Over", "price": 1.85, "point": 2.5},
              {"name": "Under", "price": 1.95, "point": 2.5}
            ]
          }
        ]
      }
    ]
  },
  {
    "id": "noteams",
    "sport_title": "EPL",
    "home_team": "",
    "away_team": "Fulham",
    "commence_time": "2026-08-29T14:00:00Z"
  }
]`

func TestParseFixturesFirstBookmakerWinsPerMarket(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(logging.NewNop())
	fixtures := catalog.ParseFixtures([]byte(samplePayload))

	require.Len(t, fixtures, 1, "record without home team must be skipped")
	fx := fixtures[0]
	require.Equal(t, "Arsenal vs Chelsea", fx.Key())

	// h2h comes from the first bookmaker, totals from the second (the
	// first to offer that market).
	require.Len(t, fx.Outcomes, 5)
	require.Equal(t, 1.65, fx.Outcomes[0].Price, "h2h prices must come from the first bookmaker")

	var overLine *float64
	for _, o := range fx.Outcomes {
		if o.Label == "Over" {
			overLine = o.Line
		}
	}
	require.NotNil(t, overLine)
	require.Equal(t, 2.5, *overLine)
}

func TestParseFixturesErrorEnvelope(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(logging.NewNop())
	fixtures := catalog.ParseFixtures([]byte(`{"message":"rate limit exceeded"}`))
	require.Empty(t, fixtures)
}

func TestParseFixturesKickoffFallback(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(logging.NewNop())
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	catalog.now = func() time.Time { return fixed }

	payload := `[{"home_team":"A","away_team":"B","commence_time":"not-a-time","bookmakers":[]}]`
	fixtures := catalog.ParseFixtures([]byte(payload))

	require.Len(t, fixtures, 1)
	require.Equal(t, fixed, fixtures[0].Kickoff, "unparseable kickoff must fall back to now, never null")
}

func TestParseFixturesDropsImpossiblePrices(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(logging.NewNop())
	payload := `[{"home_team":"A","away_team":"B","commence_time":"2026-08-29T14:00:00Z",
		"bookmakers":[{"markets":[{"key":"h2h","outcomes":[{"name":"A","price":0.95},{"name":"B","price":2.1}]}]}]}]`
	fixtures := catalog.ParseFixtures([]byte(payload))

	require.Len(t, fixtures, 1)
	require.Len(t, fixtures[0].Outcomes, 1)
	require.Equal(t, "B", fixtures[0].Outcomes[0].Label)
}
