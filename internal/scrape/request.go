package scrape

import (
	"fmt"
	"time"
)

// Mode selects the output projection of a single-page scrape.
type Mode string

// Supported output modes.
const (
	// ModeHTML returns the cleaned HTML document.
	ModeHTML Mode = "html"

	// ModeText returns the plain-text projection of the page body.
	ModeText Mode = "text"

	// ModeStructured returns the structured content model.
	ModeStructured Mode = "structured"
)

// ParseMode validates a mode string. The empty string means ModeHTML.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeHTML:
		return ModeHTML, nil
	case ModeText:
		return ModeText, nil
	case ModeStructured:
		return ModeStructured, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Request bounds for single-page scrapes.
const (
	MinTimeout = 1 * time.Second
	MaxTimeout = 60 * time.Second
	MaxDepth   = 3

	// DefaultTimeout applies when a request leaves Timeout zero.
	DefaultTimeout = 30 * time.Second
)

// ScrapeRequest describes one single-page scrape.
// Use NewScrapeRequest to get a request with the documented defaults;
// the zero value fails validation.
type ScrapeRequest struct {
	// URL is the page to scrape.
	URL string

	// Mode selects the output projection. Defaults to ModeHTML.
	Mode Mode

	// FollowLinks widens the scrape into a small same-domain crawl.
	// The response still describes the requested URL; followed pages
	// only feed discovery.
	FollowLinks bool

	// Depth bounds link following when FollowLinks is set.
	// 0 means the requested page only. Maximum is 3.
	Depth int

	// RespectRobots gates the request on robots.txt. Defaults to
	// true; a disallowed URL fails with RobotsDisallowedError.
	RespectRobots bool

	// Timeout bounds the whole operation. Defaults to 30s, clamped
	// to [1s, 60s] by validation.
	Timeout time.Duration

	// UserAgent overrides the client's User-Agent when non-empty.
	UserAgent string
}

// NewScrapeRequest creates a request for rawURL with defaults: HTML
// mode, robots respected, 30 second timeout, no link following.
func NewScrapeRequest(rawURL string) ScrapeRequest {
	return ScrapeRequest{
		URL:           rawURL,
		Mode:          ModeHTML,
		RespectRobots: true,
		Timeout:       DefaultTimeout,
	}
}

// Validate checks the request's parameter ranges. The zero Timeout is
// replaced by the default rather than rejected.
func (r *ScrapeRequest) Validate() error {
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if r.Mode == "" {
		r.Mode = ModeHTML
	}

	if r.Depth < 0 || r.Depth > MaxDepth {
		return fmt.Errorf("%w: got %d", ErrDepthRange, r.Depth)
	}

	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	if r.Timeout < MinTimeout || r.Timeout > MaxTimeout {
		return fmt.Errorf("%w: got %s", ErrTimeoutRange, r.Timeout)
	}

	return nil
}

// Crawl request bounds.
const (
	MinCrawlPages = 1
	MaxCrawlPages = 100
	MinCrawlDelay = 100 * time.Millisecond
	MaxCrawlDelay = 10 * time.Second

	DefaultCrawlPages = 10
	DefaultCrawlDelay = 1 * time.Second
)

// CrawlRequest describes one bounded crawl.
// Use NewCrawlRequest to get a request with the documented defaults.
type CrawlRequest struct {
	// StartURL is the crawl seed.
	StartURL string

	// MaxPages caps the total pages fetched, within [1, 100].
	MaxPages int

	// Delay is the pause between page fetches, within [100ms, 10s].
	Delay time.Duration

	// SameDomainOnly restricts the crawl to the seed's host.
	SameDomainOnly bool

	// IgnorePatterns are substrings; matching URLs are never fetched.
	IgnorePatterns []string

	// RespectRobots gates frontier URLs on robots.txt.
	RespectRobots bool
}

// NewCrawlRequest creates a crawl request for startURL with defaults:
// 10 pages, 1 second delay, same domain only, robots respected.
func NewCrawlRequest(startURL string) CrawlRequest {
	return CrawlRequest{
		StartURL:       startURL,
		MaxPages:       DefaultCrawlPages,
		Delay:          DefaultCrawlDelay,
		SameDomainOnly: true,
		RespectRobots:  true,
	}
}

// Validate checks the crawl request's parameter ranges. Zero MaxPages
// and Delay take their defaults rather than being rejected.
func (r *CrawlRequest) Validate() error {
	if r.MaxPages == 0 {
		r.MaxPages = DefaultCrawlPages
	}
	if r.MaxPages < MinCrawlPages || r.MaxPages > MaxCrawlPages {
		return fmt.Errorf("%w: got %d", ErrMaxPagesRange, r.MaxPages)
	}

	if r.Delay == 0 {
		r.Delay = DefaultCrawlDelay
	}
	if r.Delay < MinCrawlDelay || r.Delay > MaxCrawlDelay {
		return fmt.Errorf("%w: got %s", ErrDelayRange, r.Delay)
	}

	return nil
}
