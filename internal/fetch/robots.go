package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Robots caches parsed robots.txt rulesets per host for the lifetime
// of the process. Population is lazy: the first query for a host
// fetches {scheme}://{host}/robots.txt, and the parsed result (or the
// decision to allow everything) is cached and never invalidated.
//
// Policy: the cache fails open. A missing robots.txt (404 or any
// other non-200), a fetch error, or a parse error all mean "fully
// allowed", with a warning logged for the error cases. This favors
// availability over strict compliance and is a deliberate choice,
// not an oversight.
type Robots struct {
	// client performs the robots.txt fetches.
	client *http.Client

	// userAgent is the agent rulesets are evaluated for.
	userAgent string

	// logger receives fail-open warnings.
	logger *slog.Logger

	// cache maps host to parsed ruleset. A nil value means
	// "no usable robots.txt, allow everything".
	cache map[string]*robotstxt.RobotsData

	// mu guards cache.
	mu sync.RWMutex
}

// maxRobotsSize caps how much of a robots.txt response is read.
// 512KB is far beyond any legitimate robots file.
const maxRobotsSize = 512 * 1024

// NewRobots creates a robots cache that fetches with client and
// evaluates rules for userAgent.
func NewRobots(client *http.Client, userAgent string, logger *slog.Logger) *Robots {
	if logger == nil {
		logger = slog.Default()
	}
	return &Robots{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether robots.txt permits fetching rawURL for the
// configured user agent. Unparseable URLs are allowed; the fetch
// client rejects them on its own terms.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := r.rulesFor(ctx, u.Scheme, u.Host)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.userAgent)
}

// CrawlDelay returns the crawl-delay directive for rawURL's host and
// the configured user agent. The second return is false when no
// directive applies.
func (r *Robots) CrawlDelay(ctx context.Context, rawURL string) (time.Duration, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0, false
	}

	data := r.rulesFor(ctx, u.Scheme, u.Host)
	if data == nil {
		return 0, false
	}

	group := data.FindGroup(r.userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay, true
}

// rulesFor returns the cached ruleset for host, fetching it on first
// access. Nil means allow-all.
func (r *Robots) rulesFor(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, scheme, host)

	r.mu.Lock()
	// Another goroutine may have raced us here; first writer wins so
	// the cache stays stable for the process lifetime.
	if existing, ok := r.cache[host]; ok {
		data = existing
	} else {
		r.cache[host] = data
	}
	r.mu.Unlock()

	return data
}

// fetch retrieves and parses robots.txt for host. Every failure path
// returns nil (allow-all) per the fail-open policy.
func (r *Robots) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		r.logger.Warn("robots.txt request could not be built, allowing all",
			"host", host, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("robots.txt fetch failed, allowing all",
			"host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	// 404 means "no robots.txt, fully allowed". Other non-200 codes
	// get the same treatment: we cannot know the site's intent.
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		r.logger.Warn("robots.txt read failed, allowing all",
			"host", host, "error", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		r.logger.Warn("robots.txt parse failed, allowing all",
			"host", host, "error", err)
		return nil
	}

	return data
}
