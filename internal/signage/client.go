package signage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when polling many displays
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

const (
	defaultMaxRetries   = 1
	defaultBaseDelay    = 100 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
	defaultBreakerDelay = 15 * time.Second
)

// ErrNotFound is returned by [Client.GetCurrentPlayback] when the display has
// not logged any playback yet.
var ErrNotFound = errors.New("not found")

// StatusError is returned when the API answers with an unexpected status code.
type StatusError struct {
	// Op names the remote read, e.g. "get playback".
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
}

// response is the buffered outcome of one HTTP attempt.
type response struct {
	body       []byte
	statusCode int
}

// Client reads fleet state from the signage REST API.
//
// Client carries no global timeout; callers bound each read with the context.
// Requests go through a retry policy (network errors, 429 and 5xx only) and a
// circuit breaker shared by all reads, so a failing backend is not hammered by
// every poll cycle.
type Client struct {
	baseURL    *url.URL
	token      string
	headers    map[string]string
	httpClient *http.Client
	executor   failsafe.Executor[response]
	logger     *slog.Logger
}

// ClientOption configures a [Client].
type ClientOption func(*clientConfig)

type clientConfig struct {
	token        string
	headers      map[string]string
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	breaker      bool
	breakerDelay time.Duration
	logger       *slog.Logger
	httpClient   *http.Client
}

// WithToken sends "Authorization: Bearer <token>" with every request.
func WithToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *clientConfig) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithMaxRetries sets how many times a failed attempt is retried. Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *clientConfig) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the exponential backoff bounds between retries.
func WithRetryBackoff(base, max time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// WithCircuitBreaker enables or disables the circuit breaker. Enabled by default.
func WithCircuitBreaker(enabled bool) ClientOption {
	return func(c *clientConfig) {
		c.breaker = enabled
	}
}

// WithClientLogger sets the logger used for circuit breaker state changes.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// NewClient creates a [Client] for the API rooted at baseURL.
//
// The HTTP transport is configured with connection pooling limits:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}

	cfg := &clientConfig{
		headers:      make(map[string]string),
		maxRetries:   defaultMaxRetries,
		baseDelay:    defaultBaseDelay,
		maxDelay:     defaultMaxDelay,
		breaker:      true,
		breakerDelay: defaultBreakerDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.baseDelay <= 0 {
		cfg.baseDelay = defaultBaseDelay
	}
	if cfg.maxDelay < cfg.baseDelay {
		cfg.maxDelay = cfg.baseDelay
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{
			// no default timeout - callers bound each read via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		}
	}

	return &Client{
		baseURL:    u,
		token:      cfg.token,
		headers:    cfg.headers,
		httpClient: hc,
		executor:   newExecutor(cfg),
		logger:     cfg.logger,
	}, nil
}

// newExecutor combines the retry policy with the optional circuit breaker.
func newExecutor(cfg *clientConfig) failsafe.Executor[response] {
	retry := retrypolicy.NewBuilder[response]().
		WithBackoff(cfg.baseDelay, cfg.maxDelay).
		WithMaxRetries(cfg.maxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		// surface the last status code instead of an ExceededError
		ReturnLastFailure().
		Build()

	if !cfg.breaker {
		return failsafe.With[response](retry)
	}

	logger := cfg.logger
	breaker := circuitbreaker.NewBuilder[response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(cfg.breakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(r response, err error) bool {
			if err != nil {
				// a cancelled poll says nothing about backend health
				return !errors.Is(err, context.Canceled)
			}
			return r.statusCode >= 500
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.Warn("signage api circuit breaker state change",
				"from_state", event.OldState,
				"to_state", event.NewState,
			)
		}).
		Build()

	return failsafe.With[response](retry, breaker)
}

// shouldRetry retries network errors, rate limits and server errors. Not-found
// and other client errors are final.
func shouldRetry(r response, err error) bool {
	if err != nil {
		return !isCancellation(err) && !errors.Is(err, circuitbreaker.ErrOpen)
	}
	return r.statusCode == http.StatusTooManyRequests || r.statusCode >= 500
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// GetDisplayRoster returns every display registered to the organization.
func (c *Client) GetDisplayRoster(ctx context.Context, orgID string) ([]Display, error) {
	const op = "get display roster"

	resp, err := c.get(ctx, op, "organizations", orgID, "displays")
	if err != nil {
		return nil, err
	}
	if resp.statusCode < 200 || resp.statusCode > 299 {
		return nil, &StatusError{Op: op, Code: resp.statusCode}
	}

	var displays []Display
	if err := json.Unmarshal(resp.body, &displays); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, errMalformed, err)
	}
	return displays, nil
}

// GetCurrentPlayback returns what the display is presenting.
//
// Returns [ErrNotFound] when the display has no playback logged yet.
func (c *Client) GetCurrentPlayback(ctx context.Context, displayID string) (PlaybackSnapshot, error) {
	const op = "get playback"

	resp, err := c.get(ctx, op, "displays", displayID, "playback", "current")
	if err != nil {
		return PlaybackSnapshot{}, err
	}

	switch {
	case resp.statusCode == http.StatusNotFound:
		return PlaybackSnapshot{}, ErrNotFound
	case resp.statusCode < 200 || resp.statusCode > 299:
		return PlaybackSnapshot{}, &StatusError{Op: op, Code: resp.statusCode}
	}

	var snap PlaybackSnapshot
	if err := json.Unmarshal(resp.body, &snap); err != nil {
		return PlaybackSnapshot{}, fmt.Errorf("%s: %w: %v", op, errMalformed, err)
	}
	if err := snap.validate(); err != nil {
		return PlaybackSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	if snap.DisplayID == "" {
		snap.DisplayID = displayID
	}
	return snap, nil
}

// GetMediaPreviewURL returns a time-limited signed URL for the media asset.
func (c *Client) GetMediaPreviewURL(ctx context.Context, mediaID string) (string, error) {
	const op = "get preview url"

	resp, err := c.get(ctx, op, "media", mediaID, "preview-url")
	if err != nil {
		return "", err
	}
	if resp.statusCode < 200 || resp.statusCode > 299 {
		return "", &StatusError{Op: op, Code: resp.statusCode}
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, errMalformed, err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("%s: %w: empty url", op, errMalformed)
	}
	return body.URL, nil
}

// get issues a GET for the escaped path segments through the failsafe executor.
//
// A returned response may carry any status code; the error is only set when
// no usable response was received.
func (c *Client) get(ctx context.Context, op string, segments ...string) (response, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	target := c.baseURL.String() + "/" + strings.Join(escaped, "/")

	resp, err := c.executor.WithContext(ctx).Get(func() (response, error) {
		return c.do(ctx, target)
	})
	// a final status code wins over the retry policy's exceeded error
	if resp.statusCode != 0 {
		return resp, nil
	}
	if err != nil {
		return response{}, fmt.Errorf("%s: request failed: %w", op, err)
	}
	return resp, nil
}

// do performs one HTTP attempt and buffers the body, limited to 1MB.
func (c *Client) do(ctx context.Context, target string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return response{}, fmt.Errorf("failed to read response body: %w", err)
	}

	return response{body: body, statusCode: resp.StatusCode}, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
