package apifootball

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/betforge/coupon-engine/internal/domain/history"
	"github.com/betforge/coupon-engine/internal/platform/logging"
	"github.com/betforge/coupon-engine/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://v3.football.api-sports.io"
	maxFormResults = 5
)

var errTransient = crerr.New("history provider transient failure")

// searchStripTokens are removed from team names before the provider
// search; the shorter token matches more spelling variants.
var searchStripTokens = []string{" munich", "bc", "sv", "fc", "cf"}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the fixture-history provider: team-identity search and
// finished-fixture listings per season.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// SearchTeamID resolves a team name to the provider's id, returning
// history.UnresolvedTeamID when the search yields nothing. The first
// result wins; provider search is fuzzy by design.
func (c *Client) SearchTeamID(ctx context.Context, name string) (int64, error) {
	query := SimplifySearchToken(name)
	if query == "" {
		return history.UnresolvedTeamID, nil
	}

	var envelope teamSearchEnvelope
	if err := c.doJSON(ctx, "/teams", url.Values{"search": {query}}, &envelope); err != nil {
		return history.UnresolvedTeamID, fmt.Errorf("search team %q: %w", name, err)
	}

	if len(envelope.Response) == 0 {
		return history.UnresolvedTeamID, nil
	}
	return envelope.Response[0].Team.ID, nil
}

// FetchFinishedResults lists a team's finished fixtures for a season,
// newest first, capped at five results.
func (c *Client) FetchFinishedResults(ctx context.Context, teamID int64, season int) ([]history.MatchResult, error) {
	values := url.Values{
		"team":   {strconv.FormatInt(teamID, 10)},
		"season": {strconv.Itoa(season)},
	}

	var envelope fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", values, &envelope); err != nil {
		return nil, fmt.Errorf("fetch fixtures team=%d season=%d: %w", teamID, season, err)
	}

	finished := make([]history.MatchResult, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		if item.Fixture.Status.Short != "FT" {
			continue
		}

		homeGoals, awayGoals := 0, 0
		if item.Goals.Home != nil {
			homeGoals = *item.Goals.Home
		}
		if item.Goals.Away != nil {
			awayGoals = *item.Goals.Away
		}

		isHome := item.Teams.Home.ID == teamID
		opponent := item.Teams.Home.Name
		if isHome {
			opponent = item.Teams.Away.Name
		}

		finished = append(finished, history.MatchResult{
			Result:    history.ResultFor(homeGoals, awayGoals, isHome),
			Score:     fmt.Sprintf("%d:%d", homeGoals, awayGoals),
			Opponent:  opponent,
			Timestamp: item.Fixture.Timestamp,
		})
	}

	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].Timestamp > finished[j].Timestamp
	})
	if len(finished) > maxFormResults {
		finished = finished[:maxFormResults]
	}
	return finished, nil
}

// SimplifySearchToken strips common club suffixes and prefixes so the
// provider search matches across spelling variants. Lossy on purpose.
func SimplifySearchToken(name string) string {
	token := strings.ToLower(strings.TrimSpace(name))
	for _, strip := range searchStripTokens {
		token = strings.ReplaceAll(token, strip, "")
	}
	return strings.TrimSpace(token)
}

func (c *Client) doJSON(ctx context.Context, path string, values url.Values, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "history circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("history provider is temporarily unavailable: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("x-apisports-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(errTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = crerr.Wrapf(errTransient, "provider status=%d", resp.StatusCode)
			default:
				return nil, fmt.Errorf("provider status=%d", resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "history request failed", "error", lastErr)
	return nil, lastErr
}
