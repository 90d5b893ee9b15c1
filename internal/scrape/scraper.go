package scrape

import (
	"context"
	"log/slog"

	"github.com/webharvest/webharvest/internal/clean"
	"github.com/webharvest/webharvest/internal/crawler"
	"github.com/webharvest/webharvest/internal/extract"
	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/guard"
	"github.com/webharvest/webharvest/internal/model"
)

// Scraper is the facade over the acquisition layers. One Scraper owns
// one fetch client, so the per-domain rate limiters and the robots
// ruleset cache are shared by every operation and every goroutine
// using this instance.
type Scraper struct {
	client  *fetch.Client
	cleaner *clean.Cleaner
	logger  *slog.Logger

	// allowLoopback permits loopback targets. Off unless the caller
	// explicitly opts in for self-hosted services.
	allowLoopback bool
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClient sets the fetch client. Without this option the scraper
// builds a client with default politeness settings.
func WithClient(client *fetch.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithLogger sets the scraper's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithAllowLoopback permits scraping loopback hosts. Private network
// ranges stay rejected. Meant for services the caller runs locally.
func WithAllowLoopback() Option {
	return func(s *Scraper) {
		s.allowLoopback = true
	}
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		cleaner: clean.New(clean.DefaultOptions()),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = fetch.NewClient(fetch.WithLogger(s.logger))
	}

	return s
}

// Client returns the underlying fetch client.
func (s *Scraper) Client() *fetch.Client {
	return s.client
}

// ScrapeURL scrapes one URL and returns its projection in the
// requested mode. With FollowLinks set, a small same-domain crawl runs
// behind the scenes for link discovery, but the returned result still
// describes the requested URL.
func (s *Scraper) ScrapeURL(ctx context.Context, req ScrapeRequest) (ScrapeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	client := s.clientFor(req.UserAgent)

	if req.FollowLinks && req.Depth > 0 {
		return s.scrapeFollowing(ctx, client, req)
	}

	pipeline := NewPipeline(WithPipelineLogger(s.logger))
	pipeline.AddSteps(
		&ValidateStep{AllowLoopback: s.allowLoopback},
		&RobotsStep{Client: client},
		&FetchStep{Client: client},
		&CleanStep{Cleaner: s.cleaner},
		&ExtractStep{},
	)

	ex := &Exchange{Request: &req}
	if err := pipeline.Execute(ctx, ex); err != nil {
		return nil, err
	}

	return resultFor(req.Mode, ex.Page), nil
}

// scrapeFollowing serves a FollowLinks request by running a bounded
// crawl from the requested URL and projecting the seed page.
func (s *Scraper) scrapeFollowing(ctx context.Context, client *fetch.Client, req ScrapeRequest) (ScrapeResult, error) {
	if err := guard.ValidateWithOptions(req.URL, s.guardOptions()); err != nil {
		return nil, err
	}
	if req.RespectRobots && !client.CheckRobots(ctx, req.URL) {
		return nil, &fetch.RobotsDisallowedError{
			URL:       req.URL,
			UserAgent: client.UserAgent(),
		}
	}

	c := crawler.New(client,
		crawler.WithMaxDepth(req.Depth),
		crawler.WithRespectRobots(req.RespectRobots),
		crawler.WithLogger(s.logger),
	)

	manifest, err := c.Crawl(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if len(manifest.Pages) == 0 {
		if len(manifest.Errors) > 0 {
			s.logger.Warn("seed page failed during follow-links scrape",
				"url", req.URL, "error", manifest.Errors[0].Error)
		}
		return nil, ErrNoPages
	}

	s.logger.Debug("follow-links scrape complete",
		"url", req.URL, "pages", manifest.TotalPages, "errors", manifest.ErrorCount)

	// Pages are in visit order; the seed is always first.
	return resultFor(req.Mode, manifest.Pages[0]), nil
}

// CleanHTML cleans caller-supplied HTML without any network activity.
func (s *Scraper) CleanHTML(htmlStr string, opts clean.Options) (string, error) {
	return clean.New(opts).Clean(htmlStr)
}

// ExtractStructured extracts structured content from caller-supplied
// HTML, resolving URLs against baseURL. No network activity.
func (s *Scraper) ExtractStructured(htmlStr, baseURL string) (*model.StructuredContent, error) {
	return extract.Extract(htmlStr, baseURL)
}

// LinkFilter restricts ListLinks output and gates its fetch. Zero
// value keeps everything and skips the robots.txt check. Setting both
// side flags keeps nothing; callers choose one side.
type LinkFilter struct {
	InternalOnly bool
	ExternalOnly bool

	// RespectRobots refuses the listing when robots.txt disallows
	// fetching the page.
	RespectRobots bool
}

// ListLinks fetches a page and returns its links, optionally filtered
// to one side of the internal/external split. This is a direct
// single-URL request, so a robots disallowance is an error, not a
// soft skip.
func (s *Scraper) ListLinks(ctx context.Context, rawURL string, filter LinkFilter) ([]model.LinkInfo, error) {
	if err := guard.ValidateWithOptions(rawURL, s.guardOptions()); err != nil {
		return nil, err
	}

	if filter.RespectRobots && !s.client.CheckRobots(ctx, rawURL) {
		return nil, &fetch.RobotsDisallowedError{
			URL:       rawURL,
			UserAgent: s.client.UserAgent(),
		}
	}

	res, err := s.client.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	structured, err := extract.ExtractWithOptions(res.Data, rawURL, extract.Options{Links: true})
	if err != nil {
		return nil, err
	}

	links := make([]model.LinkInfo, 0, len(structured.Links))
	for _, link := range structured.Links {
		if filter.InternalOnly && !link.IsInternal {
			continue
		}
		if filter.ExternalOnly && !link.IsExternal {
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

// Crawl runs a bounded breadth-first crawl described by req.
func (s *Scraper) Crawl(ctx context.Context, req CrawlRequest) (*model.CrawlManifest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := guard.ValidateWithOptions(req.StartURL, s.guardOptions()); err != nil {
		return nil, err
	}

	c := crawler.New(s.client,
		crawler.WithMaxPages(req.MaxPages),
		crawler.WithDelay(req.Delay),
		crawler.WithSameDomainOnly(req.SameDomainOnly),
		crawler.WithIgnorePatterns(req.IgnorePatterns),
		crawler.WithRespectRobots(req.RespectRobots),
		crawler.WithLogger(s.logger),
	)
	return c.Crawl(ctx, req.StartURL)
}

// ValidateOptions selects the checks ValidateURL performs beyond the
// always-on safety validation.
type ValidateOptions struct {
	// CheckRobots also consults the host's robots.txt.
	CheckRobots bool

	// RequireHTTPS rejects plain http URLs.
	RequireHTTPS bool
}

// ValidationReport is the outcome of ValidateURL.
type ValidationReport struct {
	// URL is the URL that was checked.
	URL string `json:"url"`

	// Valid reports whether the URL passed the safety validation.
	Valid bool `json:"valid"`

	// Reason explains a failed validation. Empty when valid.
	Reason string `json:"reason,omitempty"`

	// RobotsChecked reports whether robots.txt was consulted.
	RobotsChecked bool `json:"robotsChecked"`

	// RobotsAllowed is meaningful only when RobotsChecked is true.
	RobotsAllowed bool `json:"robotsAllowed"`
}

// ValidateURL checks a URL without fetching it. Robots checking is
// the one exception: it needs the host's robots.txt, which may be
// fetched (once) into the shared cache.
func (s *Scraper) ValidateURL(ctx context.Context, rawURL string, opts ValidateOptions) *ValidationReport {
	report := &ValidationReport{URL: rawURL}

	guardOpts := s.guardOptions()
	guardOpts.RequireHTTPS = opts.RequireHTTPS
	if err := guard.ValidateWithOptions(rawURL, guardOpts); err != nil {
		report.Reason = err.Error()
		return report
	}
	report.Valid = true

	if opts.CheckRobots {
		report.RobotsChecked = true
		report.RobotsAllowed = s.client.CheckRobots(ctx, rawURL)
	}

	return report
}

// guardOptions returns the scraper's baseline guard policy.
func (s *Scraper) guardOptions() guard.Options {
	return guard.Options{AllowLoopback: s.allowLoopback}
}

// clientFor returns the shared client, or a one-off client when the
// request overrides the User-Agent. The one-off client carries its
// own limiters and robots cache; overrides are expected to be rare.
func (s *Scraper) clientFor(userAgent string) *fetch.Client {
	if userAgent == "" || userAgent == s.client.UserAgent() {
		return s.client
	}
	return fetch.NewClient(
		fetch.WithUserAgent(userAgent),
		fetch.WithLogger(s.logger),
	)
}
