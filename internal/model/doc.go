// Package model defines the data structures shared across the scraping
// pipeline: fetched pages, structured content, and crawl manifests.
//
// The package is intentionally dependency-free so that every other
// internal package can import it without cycles.
package model
