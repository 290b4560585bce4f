package oddsapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"

	"github.com/betforge/coupon-engine/internal/platform/filecache"
	"github.com/betforge/coupon-engine/internal/platform/logging"
	"github.com/betforge/coupon-engine/internal/platform/resilience"
)

const defaultBaseURL = "https://api.the-odds-api.com/v4"

var errTransient = crerr.New("odds provider transient failure")

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Regions        string
	Markets        string
	Bookmakers     string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Cache          *filecache.Store
}

// Client fetches raw odds payloads for a sport key, shielding the
// rate-limited provider behind the disk cache: the cache is consulted
// before any network call is attempted.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	apiKey         string
	regions        string
	markets        string
	bookmakers     string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	cache          *filecache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	markets := strings.TrimSpace(cfg.Markets)
	if markets == "" {
		markets = "h2h,totals"
	}
	regions := strings.TrimSpace(cfg.Regions)
	if regions == "" {
		regions = "eu"
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     &fasthttp.Client{ReadTimeout: timeout, WriteTimeout: timeout},
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		regions:        regions,
		markets:        markets,
		bookmakers:     strings.TrimSpace(cfg.Bookmakers),
		timeout:        timeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		cache:          cfg.Cache,
	}
}

// FetchOdds returns the raw odds payload for sportKey, reusing the disk
// cache while it is fresh. A cache miss hits the provider and persists
// the response; a provider failure on a miss propagates to the caller,
// since an empty coupon from no data would be misleading.
func (c *Client) FetchOdds(ctx context.Context, sportKey string) ([]byte, error) {
	if strings.TrimSpace(sportKey) == "" {
		return nil, fmt.Errorf("sport key is required")
	}

	if c.cache != nil && c.cache.IsValid(sportKey) {
		raw, err := c.cache.Load(sportKey)
		if err == nil {
			c.logger.DebugContext(ctx, "odds served from disk cache", "sport", sportKey)
			return raw, nil
		}
		c.logger.WarnContext(ctx, "cache entry valid but unreadable, falling through to provider", "sport", sportKey, "error", err)
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("odds provider is temporarily unavailable: %w", err)
		}
	}

	out, err, _ := c.flight.Do(sportKey, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, c.oddsURL(sportKey))
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		if reqErr != nil {
			return nil, reqErr
		}

		if c.cache != nil {
			if saveErr := c.cache.Save(sportKey, raw); saveErr != nil {
				c.logger.WarnContext(ctx, "persist odds cache failed", "sport", sportKey, "error", saveErr)
			}
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) oddsURL(sportKey string) string {
	values := url.Values{}
	values.Set("regions", c.regions)
	values.Set("markets", c.markets)
	if c.bookmakers != "" {
		values.Set("bookmakers", c.bookmakers)
	}
	values.Set("apiKey", c.apiKey)

	return c.baseURL + "/sports/" + url.PathEscape(sportKey) + "/odds/?" + values.Encode()
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.doOnce(fullURL)
		if err != nil {
			lastErr = crerr.Wrapf(errTransient, "send request: %s", sanitizeKey(err.Error(), c.apiKey))
		} else if status >= 200 && status < 300 {
			return raw, nil
		} else if isRetryableStatus(status) {
			lastErr = crerr.Wrapf(errTransient, "provider status=%d", status)
		} else {
			return nil, fmt.Errorf("provider status=%d body=%s", status, abbreviate(raw))
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
	c.logger.WarnContext(ctx, "odds request failed", "error", lastErr)
	return nil, lastErr
}

func (c *Client) doOnce(fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, 0, err
	}

	// Quota accounting: provider reports remaining request credits per call.
	used := string(resp.Header.Peek("x-requests-used"))
	remaining := string(resp.Header.Peek("x-requests-remaining"))
	if used != "" || remaining != "" {
		c.logger.Info("odds provider quota", "used", used, "remaining", remaining)
	}

	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func sanitizeKey(value, key string) string {
	if key == "" {
		return value
	}
	return strings.ReplaceAll(value, key, "REDACTED")
}

func abbreviate(raw []byte) string {
	const limit = 256
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
