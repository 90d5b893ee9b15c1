package scrape

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is how many scrapes run at once when the
// caller does not say otherwise.
const DefaultBatchConcurrency = 5

// BatchResult pairs one request with its outcome. Exactly one of
// Result and Err is set.
type BatchResult struct {
	// Request is the scrape that was attempted.
	Request ScrapeRequest

	// Result is the scrape outcome on success.
	Result ScrapeResult

	// Err is the failure on error.
	Err error
}

// BatchOption configures BatchScrape.
type BatchOption func(*batchConfig)

type batchConfig struct {
	concurrency int
}

// WithConcurrency sets the maximum number of concurrent scrapes.
func WithConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// BatchScrape runs multiple scrapes concurrently and returns one
// result per request, in request order. Individual failures are
// recorded in their slot and never abort the batch; the error return
// is non-nil only when the batch itself was cancelled.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it is simpler and handles the concurrency cap correctly.
// The shared fetch client still serializes requests per domain, so a
// batch of same-host URLs is polite regardless of the cap.
func (s *Scraper) BatchScrape(ctx context.Context, requests []ScrapeRequest, opts ...BatchOption) ([]BatchResult, error) {
	cfg := &batchConfig{concurrency: DefaultBatchConcurrency}
	for _, opt := range opts {
		opt(cfg)
	}

	s.logger.Info("starting batch scrape",
		"total", len(requests), "concurrency", cfg.concurrency)
	startTime := time.Now()

	results := make([]BatchResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res, err := s.ScrapeURL(gctx, req)

			// Each goroutine owns exactly its own slot.
			results[i] = BatchResult{Request: req, Result: res, Err: err}

			if err != nil {
				s.logger.Warn("batch scrape item failed",
					"url", req.URL, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()

	s.logger.Info("batch scrape complete",
		"total", len(requests), "elapsed", time.Since(startTime))

	return results, err
}
