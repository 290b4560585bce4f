package oddsapi

import (
	"bytes"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/betforge/coupon-engine/internal/domain/odds"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

// Catalog normalizes raw odds payloads into fixtures with deduplicated
// best-available outcomes per market.
type Catalog struct {
	logger *logging.Logger
	now    func() time.Time
}

func NewCatalog(logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{logger: logger, now: time.Now}
}

// ParseFixtures decodes a provider payload into fixtures. Payloads that
// look like an upstream error object yield zero fixtures and a warning;
// individual malformed records are skipped, the rest still parses.
func (c *Catalog) ParseFixtures(raw []byte) []odds.Fixture {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	// Upstream errors arrive as an object instead of the fixture array.
	if trimmed[0] == '{' {
		var envelope errorEnvelope
		_ = sonic.Unmarshal(trimmed, &envelope)
		c.logger.Warn("odds payload is an upstream error object, no fixtures parsed",
			"message", envelope.Message, "error_code", envelope.ErrorCode)
		return nil
	}

	var games []rawGame
	if err := sonic.Unmarshal(trimmed, &games); err != nil {
		c.logger.Warn("decode odds payload failed", "error", err)
		return nil
	}

	fixtures := make([]odds.Fixture, 0, len(games))
	for _, game := range games {
		if game.HomeTeam == "" || game.AwayTeam == "" || game.CommenceTime == "" {
			continue
		}

		kickoff := c.now()
		if parsed, err := time.Parse(time.RFC3339, game.CommenceTime); err == nil {
			kickoff = parsed.Local()
		}
		// On parse failure the fixture keeps "now" as a lossy fallback
		// rather than being rejected.

		sportTitle := game.SportTitle
		if sportTitle == "" {
			sportTitle = "Unknown"
		}

		fixtures = append(fixtures, odds.Fixture{
			HomeTeam:   game.HomeTeam,
			AwayTeam:   game.AwayTeam,
			SportTitle: sportTitle,
			Kickoff:    kickoff,
			Outcomes:   extractBestOutcomes(game),
		})
	}

	return fixtures
}

// extractBestOutcomes walks bookmakers in payload order and keeps each
// market only from the first bookmaker offering it. Provider priority
// order is significant and fixed; later, possibly better-priced versions
// of an already-satisfied market are ignored.
func extractBestOutcomes(game rawGame) []odds.Outcome {
	var out []odds.Outcome
	satisfied := map[string]bool{}

	for _, bookie := range game.Bookmakers {
		for _, market := range bookie.Markets {
			key := strings.ToLower(market.Key)
			if key != odds.MarketH2H && key != odds.MarketTotals {
				continue
			}
			if satisfied[key] || len(market.Outcomes) == 0 {
				continue
			}

			for _, outcome := range market.Outcomes {
				if outcome.Name == "" || outcome.Price <= 1.0 {
					continue
				}
				out = append(out, odds.Outcome{
					Label: outcome.Name,
					Price: outcome.Price,
					Line:  outcome.Point,
				})
			}
			satisfied[key] = true
		}
	}

	return out
}
