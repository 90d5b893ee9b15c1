// Package main provides the entry point for the webharvest CLI.
//
// webharvest fetches, cleans, and extracts content from web pages
// while staying polite: robots.txt is respected, requests to the same
// host are rate limited, and private-network URLs are rejected.
//
// Usage:
//
//	webharvest scrape <url>
//	webharvest crawl <url>
//	webharvest db list
//
// See --help for all available options.
package main

// main is the entry point for webharvest.
func main() {
	Execute()
}
