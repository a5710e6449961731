package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the base URL for Slack's web API.
	DefaultBaseURL = "https://slack.com/api"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultRetryAfter is used when a rate-limited response carries no
	// usable Retry-After header.
	DefaultRetryAfter = 60 * time.Second
)

// Client talks to one workspace's web API. All calls share one
// RateController and one set of entity caches.
type Client struct {
	creds      Credentials
	httpClient *http.Client
	baseURL    string
	limiter    *RateController
	log        *zap.Logger
	wait       func(ctx context.Context, d time.Duration) error

	users         *UserCache
	conversations *ConversationCache

	mu     sync.RWMutex
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
// Useful for testing with mock servers.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRateInterval sets the minimum spacing between calls.
func WithRateInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = NewRateController(d)
	}
}

// WithRetryWait replaces the sleep used between rate-limited retries.
func WithRetryWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if wait != nil {
			c.wait = wait
		}
	}
}

// NewClient creates a web API client for the given credentials.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:         creds,
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:       DefaultBaseURL,
		limiter:       NewRateController(DefaultRateInterval),
		log:           zap.NewNop(),
		wait:          waitWithContext,
		users:         NewUserCache(),
		conversations: NewConversationCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// RateController exposes the client's limiter.
func (c *Client) RateController() *RateController {
	return c.limiter
}

// Users returns the client's user cache.
func (c *Client) Users() *UserCache {
	return c.users
}

// Conversations returns the client's conversation cache.
func (c *Client) Conversations() *ConversationCache {
	return c.conversations
}

// Close releases idle connections. Later calls fail with ErrClientClosed.
// Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.call(ctx, http.MethodGet, endpoint, params, out)
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.call(ctx, http.MethodPost, endpoint, params, out)
}

// call runs one logical API call. Rate-limited attempts are retried after
// the advised delay for as long as ctx allows; every other failure is
// returned as a classified *Error.
func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	for {
		if c.Closed() {
			return &Error{Kind: KindClosed, Endpoint: endpoint, Err: ErrClientClosed}
		}
		if err := c.limiter.Acquire(ctx); err != nil {
			return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
		}

		payload, err := c.do(ctx, method, endpoint, params)
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited {
			c.limiter.Backoff()
			c.log.Warn("rate limited",
				zap.String("endpoint", endpoint),
				zap.Duration("retry_after", apiErr.RetryAfter),
				zap.Float64("multiplier", c.limiter.Multiplier()))
			if werr := c.wait(ctx, apiErr.RetryAfter); werr != nil {
				return &Error{Kind: KindTransport, Endpoint: endpoint, Err: werr}
			}
			continue
		}
		if err != nil {
			c.log.Debug("slack call failed", zap.String("endpoint", endpoint), zap.Error(err))
			return err
		}

		c.limiter.Reset()
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return &Error{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
}

// do performs a single HTTP round trip and classifies the outcome.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	target := c.baseURL + "/" + endpoint
	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	req.Header.Set("Cookie", "d="+c.creds.Cookie)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{
			Kind:       KindRateLimited,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTP, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	if readErr != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: readErr}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !env.OK {
		code := env.Error
		if code == "" {
			code = "unknown_error"
		}
		if code == "ratelimited" || code == "rate_limited" {
			return nil, &Error{
				Kind:       KindRateLimited,
				Endpoint:   endpoint,
				Code:       code,
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return nil, &Error{Kind: KindAPI, Endpoint: endpoint, Code: code, StatusCode: resp.StatusCode}
	}
	return payload, nil
}

// parseRetryAfter reads a delay in seconds, falling back to
// DefaultRetryAfter when the header is absent or malformed.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
