// Package crawler implements bounded breadth-first crawling.
//
// A crawl starts from a single seed URL and follows same-domain links
// in FIFO order until the frontier is exhausted, the page cap is
// reached, or the context is cancelled. Individual page failures are
// recorded in the crawl manifest and never abort the crawl.
package crawler
