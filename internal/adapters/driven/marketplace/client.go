package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.MarketplaceClient = (*Client)(nil)

const (
	// DefaultBaseURL is the public marketplace API
	DefaultBaseURL = "https://api.mercadolibre.com"

	defaultHTTPTimeout = 30 * time.Second
	maxJitter          = time.Second
	maxErrorBody       = 4 << 10
)

// APIError is returned when the marketplace answers with a non-2xx status
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API error %d on %s: %s", e.Status, e.Endpoint, e.Body)
}

// Temporary reports whether the request may succeed if retried (429 and 5xx)
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Config holds configuration for the marketplace client
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPTimeout  time.Duration
	HTTPClient   *http.Client      // Optional, overrides HTTPTimeout
	Sync         domain.SyncConfig // Initial throttle and retry tunables
	Logger       *slog.Logger
}

// Client issues throttled, retrying requests to the marketplace API.
// Every attempt first pauses for the configured delay, including the first
// call after an idle gap. All calls then share one limiter, so traffic stays
// spaced by the same delay no matter how many goroutines call concurrently.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu            sync.RWMutex
	retryAttempts int
	retryDelay    time.Duration
	requestDelay  time.Duration

	// Overridable in tests
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewClient creates a new marketplace API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     logger,
		sleep:      sleepContext,
		jitter:     func() time.Duration { return rand.N(maxJitter) },
	}
	c.ApplyConfig(cfg.Sync)
	return c
}

// ApplyConfig swaps the throttle and retry tunables.
// Requests already waiting keep the values they started with.
func (c *Client) ApplyConfig(cfg domain.SyncConfig) {
	c.mu.Lock()
	c.retryAttempts = max(cfg.RetryAttempts, 1)
	c.retryDelay = max(cfg.RetryDelay(), 0)
	c.requestDelay = max(cfg.RateLimitDelay(), 0)
	c.mu.Unlock()

	c.limiter.SetLimit(limitFor(cfg.RateLimitDelay()))
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}

// BackoffDelay returns the deterministic part of the wait before the given
// attempt: base * 2^(attempt-1). The first attempt never waits.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return base * time.Duration(1<<(attempt-1))
}

// FetchOptions customize a single request
type FetchOptions struct {
	Query url.Values
}

// Response is a successful marketplace response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Fetch performs a GET on endpoint with the access token as query parameter.
// Transport errors, 429 and 5xx are retried with exponential backoff plus
// jitter; other 4xx fail immediately. The last failure is returned wrapped.
func (c *Client) Fetch(ctx context.Context, endpoint, accessToken string, opts *FetchOptions) (*Response, error) {
	c.mu.RLock()
	attempts, base, pause := c.retryAttempts, c.retryDelay, c.requestDelay
	c.mu.RUnlock()

	query := url.Values{}
	if opts != nil {
		for k, v := range opts.Query {
			query[k] = v
		}
	}
	if accessToken != "" {
		query.Set("access_token", accessToken)
	}
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := BackoffDelay(base, attempt) + c.jitter()
			c.logger.Debug("retrying marketplace request",
				"endpoint", endpoint,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if pause > 0 {
			if err := c.sleep(ctx, pause); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.do(ctx, endpoint, target)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", endpoint, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(body)}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// retryable treats API errors by status and everything else as a transport failure
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// GetItem fetches an item and the ETag of the response
func (c *Client) GetItem(ctx context.Context, itemID, accessToken string) (*domain.Item, string, error) {
	resp, err := c.Fetch(ctx, "/items/"+url.PathEscape(itemID), accessToken, nil)
	if err != nil {
		return nil, "", err
	}

	var item domain.Item
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return nil, "", fmt.Errorf("decode item %s: %w", itemID, err)
	}
	if item.ID == "" {
		item.ID = itemID
	}
	return &item, resp.Header.Get("ETag"), nil
}

// GetItemDescription fetches the plain-text description of an item
func (c *Client) GetItemDescription(ctx context.Context, itemID, accessToken string) (string, error) {
	resp, err := c.Fetch(ctx, "/items/"+url.PathEscape(itemID)+"/description", accessToken, nil)
	if err != nil {
		return "", err
	}

	var desc domain.ItemDescription
	if err := json.Unmarshal(resp.Body, &desc); err != nil {
		return "", fmt.Errorf("decode description %s: %w", itemID, err)
	}
	return desc.Text(), nil
}

// SearchSellerItems returns one page of a seller's active item IDs.
// An empty page marks the end of the listing.
func (c *Client) SearchSellerItems(ctx context.Context, sellerID, accessToken string, offset, limit int) ([]string, error) {
	opts := &FetchOptions{Query: url.Values{
		"status": {"active"},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}}
	resp, err := c.Fetch(ctx, "/users/"+url.PathEscape(sellerID)+"/items/search", accessToken, opts)
	if err != nil {
		return nil, err
	}

	var page domain.SearchPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	return page.Results, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
