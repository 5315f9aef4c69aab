// Package osrs is a client for the OSRS Wiki real-time prices API: latest
// prices, per-item time series and the item mapping catalog.
package osrs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/gemonitor/internal/models"
)

const DefaultBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int
	// UserAgent is read on every request so settings changes apply immediately.
	UserAgent func() string
}

// Client provides access to the prices API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   func() string
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	series      *cache.Cache
	seriesStore SeriesCache
	now         func() time.Time
	logger      *zap.Logger
}

type Option func(*Client)

// WithSeriesCache adds a persistent second-tier cache for time series.
func WithSeriesCache(sc SeriesCache) Option {
	return func(c *Client) { c.seriesStore = sc }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new prices API client.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	userAgent := cfg.UserAgent
	if userAgent == nil {
		userAgent = func() string { return models.DefaultUserAgent }
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		series:     cache.New(30*time.Minute, 10*time.Minute),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type latestEntry struct {
	High     *float64 `json:"high"`
	HighTime *int64   `json:"highTime"`
	Low      *float64 `json:"low"`
	LowTime  *int64   `json:"lowTime"`
}

type latestResponse struct {
	Data map[string]latestEntry `json:"data"`
}

// LatestPrices returns the latest instant-buy and instant-sell prices for ids.
// Items the feed does not know are absent from the result.
func (c *Client) LatestPrices(ctx context.Context, ids []int) (map[int]models.LatestPrice, error) {
	out := make(map[int]models.LatestPrice, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var payload latestResponse
	if err := c.getJSON(ctx, "/latest", nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch latest prices: %w", err)
	}

	for _, id := range ids {
		entry, ok := payload.Data[strconv.Itoa(id)]
		if !ok {
			continue
		}
		out[id] = models.LatestPrice{
			ItemID:   id,
			High:     entry.High,
			Low:      entry.Low,
			HighTime: unixTime(entry.HighTime),
			LowTime:  unixTime(entry.LowTime),
		}
	}
	return out, nil
}

func unixTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	return models.Time(time.Unix(*sec, 0).UTC())
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")
		if ua := c.userAgent(); ua != "" {
			req.Header.Set("User-Agent", ua)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * c.retryDelay):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
