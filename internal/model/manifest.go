package model

import "time"

// CrawlManifest summarizes one crawl invocation. It is created when
// the crawl starts and finalized exactly once, on termination by
// frontier exhaustion, page cap, or cancellation.
type CrawlManifest struct {
	// StartURL is the seed URL the crawl began from.
	StartURL string `json:"startUrl"`

	// Pages holds every successfully scraped page in visit order.
	Pages []*ScrapedPage `json:"pages"`

	// Errors holds one entry per page that failed, in visit order.
	// Failures never abort the crawl.
	Errors []CrawlError `json:"errors,omitempty"`

	// TotalPages is len(Pages).
	TotalPages int `json:"totalPages"`

	// SuccessCount equals TotalPages; kept separate for wire
	// compatibility with consumers that read both fields.
	SuccessCount int `json:"successCount"`

	// ErrorCount is len(Errors).
	ErrorCount int `json:"errorCount"`

	// StartedAt is when the crawl loop began.
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when the crawl terminated.
	CompletedAt time.Time `json:"completedAt"`

	// Duration is CompletedAt minus StartedAt.
	Duration time.Duration `json:"duration"`
}

// CrawlError records a single per-page failure inside a crawl.
type CrawlError struct {
	// URL is the frontier URL that failed.
	URL string `json:"url"`

	// Error is the failure description.
	Error string `json:"error"`
}

// NewCrawlManifest creates a manifest for a crawl starting at startURL.
func NewCrawlManifest(startURL string) *CrawlManifest {
	return &CrawlManifest{
		StartURL:  startURL,
		Pages:     make([]*ScrapedPage, 0),
		Errors:    make([]CrawlError, 0),
		StartedAt: time.Now(),
	}
}

// Finalize stamps completion time and derived counters.
func (m *CrawlManifest) Finalize() {
	m.CompletedAt = time.Now()
	m.Duration = m.CompletedAt.Sub(m.StartedAt)
	m.TotalPages = len(m.Pages)
	m.SuccessCount = len(m.Pages)
	m.ErrorCount = len(m.Errors)
}
