// Package scrape is the high-level entry point for page acquisition.
//
// It composes the lower layers (guard, fetch, clean, extract, crawler)
// behind a Scraper facade whose operations mirror what callers ask
// for: scrape one URL in a chosen output mode, clean or extract
// supplied HTML, list a page's links, run a bounded crawl, validate a
// URL, or scrape a batch of URLs concurrently.
//
// Single-page scraping runs as a pipeline of named steps so the same
// validate/robots/fetch/clean/extract sequence is observable and
// testable step by step.
package scrape
