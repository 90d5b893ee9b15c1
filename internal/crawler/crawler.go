package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/webharvest/webharvest/internal/clean"
	"github.com/webharvest/webharvest/internal/extract"
	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/model"
)

// Default crawl bounds. Crawling is the most expensive operation the
// system performs against a remote host, so defaults lean small.
const (
	// DefaultMaxPages bounds the total pages fetched in one crawl.
	DefaultMaxPages = 10

	// DefaultDelay is the politeness pause between page fetches.
	DefaultDelay = 1 * time.Second
)

// Crawler performs bounded breadth-first crawls using a shared fetch
// client. A Crawler is safe for sequential reuse; each Crawl call
// carries its own frontier and visited state.
//
// Design decision: We take a *fetch.Client rather than building one
// because:
//  1. The client owns the per-domain rate limiters and robots cache
//  2. Sharing it keeps politeness state consistent across operations
//  3. Tests can inject a client pointed at a local server
type Crawler struct {
	client *fetch.Client

	// maxPages limits the total number of pages fetched.
	maxPages int

	// maxDepth limits link depth from the seed. 0 means the seed
	// page only; negative means unlimited.
	maxDepth int

	// sameDomainOnly restricts the frontier to the seed URL's host.
	sameDomainOnly bool

	// ignorePatterns are substrings; a discovered URL containing any
	// of them is never enqueued.
	ignorePatterns []string

	// respectRobots gates every frontier URL on robots.txt.
	respectRobots bool

	// delay is the minimum pause between page fetches. When robots
	// rules are respected and declare a longer crawl-delay, the
	// longer value wins.
	delay time.Duration

	cleaner *clean.Cleaner
	logger  *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages sets the total page cap for a crawl.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithMaxDepth limits how many links deep the crawl may go from the
// seed. 0 restricts the crawl to the seed page; a negative value
// (the default) leaves depth unlimited and lets the page cap bound
// the crawl.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithSameDomainOnly controls whether the crawl may leave the seed
// URL's host. Cross-domain crawling is off by default.
func WithSameDomainOnly(same bool) Option {
	return func(c *Crawler) {
		c.sameDomainOnly = same
	}
}

// WithIgnorePatterns sets substrings that exclude discovered URLs.
// A URL containing any pattern is skipped without being fetched.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithRespectRobots controls robots.txt enforcement for frontier
// URLs. Enabled by default.
func WithRespectRobots(respect bool) Option {
	return func(c *Crawler) {
		c.respectRobots = respect
	}
}

// WithDelay sets the politeness pause between page fetches.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithLogger sets the crawl logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler backed by client.
func New(client *fetch.Client, opts ...Option) *Crawler {
	c := &Crawler{
		client:         client,
		maxPages:       DefaultMaxPages,
		maxDepth:       -1,
		sameDomainOnly: true,
		respectRobots:  true,
		delay:          DefaultDelay,
		cleaner:        clean.New(clean.DefaultOptions()),
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Crawl runs a breadth-first crawl from startURL and returns the
// manifest. The manifest is finalized exactly once, whether the crawl
// ends by frontier exhaustion, by hitting the page cap, or by context
// cancellation. On cancellation the partial manifest is returned
// together with the context error.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*model.CrawlManifest, error) {
	seed, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL %q: %w", startURL, err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return nil, fmt.Errorf("invalid start URL %q: scheme must be http or https", startURL)
	}

	manifest := model.NewCrawlManifest(startURL)
	defer manifest.Finalize()

	seedHost := strings.ToLower(seed.Hostname())

	// queued tracks everything ever placed on the frontier so the
	// same URL is never enqueued twice; visited tracks what was
	// actually dequeued. Both key on the normalized URL form.
	frontier := []frontierItem{{url: seed.String()}}
	queued := map[string]bool{normalizeURL(seed.String()): true}
	visited := make(map[string]bool)

	for len(frontier) > 0 && len(manifest.Pages) < c.maxPages {
		select {
		case <-ctx.Done():
			return manifest, ctx.Err()
		default:
		}

		item := frontier[0]
		frontier = frontier[1:]

		key := normalizeURL(item.url)
		if visited[key] {
			continue
		}
		visited[key] = true

		// The filters run again here so they also cover the seed URL,
		// which was never screened at enqueue time.
		if c.shouldSkip(seedHost, item.url) {
			c.logger.Debug("skipping filtered URL", "url", item.url)
			continue
		}

		if c.respectRobots && !c.client.CheckRobots(ctx, item.url) {
			c.logger.Warn("skipping URL disallowed by robots.txt", "url", item.url)
			continue
		}

		page, links, err := c.visit(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return manifest, ctx.Err()
			}
			c.logger.Warn("page failed during crawl", "url", item.url, "error", err)
			manifest.Errors = append(manifest.Errors, model.CrawlError{
				URL:   item.url,
				Error: err.Error(),
			})
			continue
		}

		manifest.Pages = append(manifest.Pages, page)
		c.logger.Debug("crawled page",
			"url", item.url, "status", page.Status, "links", len(links))

		if c.maxDepth < 0 || item.depth < c.maxDepth {
			for _, link := range links {
				linkKey := normalizeURL(link)
				if queued[linkKey] {
					continue
				}
				if c.shouldSkip(seedHost, link) {
					continue
				}
				queued[linkKey] = true
				frontier = append(frontier, frontierItem{url: link, depth: item.depth + 1})
			}
		}

		if len(frontier) > 0 && len(manifest.Pages) < c.maxPages {
			if err := c.pause(ctx, item.url); err != nil {
				return manifest, err
			}
		}
	}

	return manifest, nil
}

// frontierItem is one queued URL with its link depth from the seed.
type frontierItem struct {
	url   string
	depth int
}

// visit fetches one page and builds its scraped projection plus the
// internal links discovered on it.
func (c *Crawler) visit(ctx context.Context, pageURL string) (*model.ScrapedPage, []string, error) {
	res, err := c.client.Fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	page := &model.ScrapedPage{
		URL:    res.URL,
		Status: res.Status,
		Metadata: model.PageMetadata{
			ScrapedAt:   res.FetchedAt,
			ContentType: res.ContentType,
			Charset:     res.Charset,
			Size:        res.Size,
		},
	}

	if !strings.Contains(res.ContentType, "html") {
		return page, nil, nil
	}

	cleaned, err := c.cleaner.Clean(res.Data)
	if err != nil {
		cleaned = res.Data
	}
	page.CleanedContent = cleaned

	if text, err := extract.HTMLToText(cleaned); err == nil {
		page.ExtractedText = text
	}

	structured, err := extract.Extract(res.Data, pageURL)
	if err != nil {
		return page, nil, nil
	}
	page.Structured = structured
	page.Title = structured.Title

	links := make([]string, 0, len(structured.Links))
	for _, link := range structured.Links {
		links = append(links, link.Href)
	}
	return page, links, nil
}

// shouldSkip applies the ignore-pattern and same-domain filters to a
// frontier URL. It runs at enqueue time to keep the frontier small and
// again at pop time so the seed is covered too.
func (c *Crawler) shouldSkip(seedHost, link string) bool {
	for _, pattern := range c.ignorePatterns {
		if pattern != "" && strings.Contains(link, pattern) {
			return true
		}
	}

	if c.sameDomainOnly {
		u, err := url.Parse(link)
		if err != nil {
			return true
		}
		if !strings.EqualFold(u.Hostname(), seedHost) {
			return true
		}
	}

	return false
}

// pause sleeps the politeness delay before the next fetch. When
// robots rules are respected and the host declares a crawl-delay
// longer than the configured pause, the host's value wins.
func (c *Crawler) pause(ctx context.Context, pageURL string) error {
	d := c.delay
	if c.respectRobots {
		if crawlDelay, ok := c.client.RobotsCrawlDelay(ctx, pageURL); ok && crawlDelay > d {
			d = crawlDelay
		}
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// normalizeURL folds URL representations that name the same resource:
// fragments are dropped, scheme and host are lowercased, and the
// empty path becomes "/".
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
