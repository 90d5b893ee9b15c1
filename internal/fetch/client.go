package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// Default client settings. Conservative values that keep the scraper
// polite without making single-page fetches painfully slow.
const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies this scraper in request logs.
	DefaultUserAgent = "webharvest/1.0 (+https://github.com/webharvest/webharvest)"

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 3

	// DefaultMinInterval is the minimum spacing between two requests
	// to the same domain through one client.
	DefaultMinInterval = 1 * time.Second

	// DefaultInitialBackoff is the first retry delay. It doubles on
	// every subsequent retry.
	DefaultInitialBackoff = 1 * time.Second

	// DefaultMaxBackoff caps the exponential retry delay.
	DefaultMaxBackoff = 10 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB covers any realistic HTML document.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Client fetches URLs with per-domain rate limiting, retry with
// exponential backoff, and a shared robots.txt cache.
//
// All politeness state lives on the instance: concurrent callers that
// share one Client share one limiter per domain and one robots cache.
// Creating a second Client creates independent state.
type Client struct {
	// httpClient performs the actual requests.
	httpClient *http.Client

	// userAgent is sent on every request.
	userAgent string

	// retries is the retry budget after the first attempt.
	retries int

	// minInterval is the per-domain minimum inter-request spacing.
	minInterval time.Duration

	// initialBackoff and maxBackoff bound the retry delay schedule.
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// maxBodySize caps response body reads.
	maxBodySize int64

	// headers are extra request headers, typically from per-site
	// configuration (cookies, auth tokens).
	headers map[string]string

	// logger receives retry and robots warnings.
	logger *slog.Logger

	// limiters maps hostname to its rate limiter. Guarded by mu.
	limiters map[string]*rate.Limiter
	mu       sync.Mutex

	// robots is the per-host robots.txt cache.
	robots *Robots
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header for requests and robots
// rule evaluation.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithMinInterval sets the per-domain minimum spacing between requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.minInterval = d
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.maxBackoff = d
	}
}

// WithMaxBodySize sets the response body read limit.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithHeaders sets extra headers sent on every request. A "Cookie"
// entry carries site-config cookies.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. Used by tests
// and by callers that need custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client with the given options applied over the
// defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		userAgent:      DefaultUserAgent,
		retries:        DefaultRetries,
		minInterval:    DefaultMinInterval,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		maxBodySize:    DefaultMaxBodySize,
		limiters:       make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.robots = NewRobots(c.httpClient, c.userAgent, c.logger)

	return c
}

// UserAgent returns the configured User-Agent string.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Result is the outcome of a successful fetch.
type Result struct {
	// URL is the requested URL.
	URL string

	// Data is the response body, decoded to UTF-8.
	Data string

	// Status is the HTTP status code.
	Status int

	// Headers are the response headers.
	Headers http.Header

	// ContentType is the media type without parameters.
	ContentType string

	// Charset is the character set the body was decoded from.
	Charset string

	// Size is the decoded body length in bytes.
	Size int

	// FetchedAt is when the response was read.
	FetchedAt time.Time
}

// Fetch retrieves rawURL, honoring the per-domain rate limit and the
// retry policy. Terminal statuses (400, 401, 403, 404, 410) fail
// immediately; transport errors and other non-2xx statuses are
// retried with exponential backoff until the budget is spent.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	if err := c.waitTurn(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying fetch",
				"url", rawURL, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		res, err := c.do(ctx, rawURL)
		if err == nil {
			return res, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Terminal() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
	}

	var statusErr *StatusError
	if errors.As(lastErr, &statusErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", ErrRequestFailed, lastErr)
}

// CheckRobots reports whether robots.txt permits fetching rawURL for
// this client's user agent. The underlying ruleset cache is shared
// with every other caller of this client.
func (c *Client) CheckRobots(ctx context.Context, rawURL string) bool {
	return c.robots.Allowed(ctx, rawURL)
}

// RobotsCrawlDelay returns the crawl-delay directive applicable to
// rawURL's host, if any.
func (c *Client) RobotsCrawlDelay(ctx context.Context, rawURL string) (time.Duration, bool) {
	return c.robots.CrawlDelay(ctx, rawURL)
}

// waitTurn blocks until the per-domain rate limiter admits a request
// for host, or the context is cancelled.
func (c *Client) waitTurn(ctx context.Context, host string) error {
	if c.minInterval <= 0 || host == "" {
		return nil
	}

	c.mu.Lock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.minInterval), 1)
		c.limiters[host] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}

// do performs one request attempt.
func (c *Client) do(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain a little so the connection can be reused, then report.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024)) //nolint:errcheck // Best effort drain
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", rawURL, err)
	}

	contentTypeHeader := resp.Header.Get("Content-Type")
	mediaType := contentTypeHeader
	if mt, _, err := mime.ParseMediaType(contentTypeHeader); err == nil {
		mediaType = mt
	}

	decoded, charsetName := decodeBody(raw, contentTypeHeader)

	return &Result{
		URL:         rawURL,
		Data:        decoded,
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		ContentType: mediaType,
		Charset:     charsetName,
		Size:        len(decoded),
		FetchedAt:   time.Now(),
	}, nil
}

// decodeBody converts the raw body to UTF-8 and reports the charset it
// decoded from. A declared charset (Content-Type parameter) wins; an
// unambiguous sniff (BOM or meta tag) comes next; otherwise the body
// is assumed to be UTF-8 already.
func decodeBody(raw []byte, contentTypeHeader string) (string, string) {
	if _, params, err := mime.ParseMediaType(contentTypeHeader); err == nil {
		if declared, ok := params["charset"]; ok {
			if enc, err := htmlindex.Get(declared); err == nil {
				name, err := htmlindex.Name(enc)
				if err != nil {
					name = strings.ToLower(declared)
				}
				if name == "utf-8" {
					return string(raw), name
				}
				decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
				if err == nil {
					return string(decoded), name
				}
				// Fall through to sniffing on decode failure.
			}
		}
	}

	enc, name, certain := charset.DetermineEncoding(raw, contentTypeHeader)
	if certain && name != "utf-8" {
		if decoded, _, err := transform.Bytes(enc.NewDecoder(), raw); err == nil {
			return string(decoded), name
		}
	}

	return string(raw), "utf-8"
}

// RawHTTPClient exposes the underlying http.Client. The robots cache
// and any custom transports share it.
func (c *Client) RawHTTPClient() *http.Client {
	return c.httpClient
}
