package scrape

import "errors"

// Request validation errors.
var (
	// ErrUnknownMode indicates an output mode outside html, text,
	// and structured.
	ErrUnknownMode = errors.New("unknown output mode")

	// ErrDepthRange indicates a link-follow depth outside [0, 3].
	ErrDepthRange = errors.New("depth must be between 0 and 3")

	// ErrTimeoutRange indicates a per-request timeout outside
	// [1s, 60s].
	ErrTimeoutRange = errors.New("timeout must be between 1s and 60s")

	// ErrMaxPagesRange indicates a crawl page cap outside [1, 100].
	ErrMaxPagesRange = errors.New("maxPages must be between 1 and 100")

	// ErrDelayRange indicates a crawl delay outside [100ms, 10s].
	ErrDelayRange = errors.New("delay must be between 100ms and 10s")

	// ErrNoPages indicates a crawl that produced no pages at all,
	// so there is nothing to return for the seed URL.
	ErrNoPages = errors.New("crawl produced no pages")
)
