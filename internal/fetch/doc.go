// Package fetch performs the HTTP requests behind every scrape and
// crawl operation.
//
// The Client owns all process-wide politeness state: a per-domain
// rate limiter map and a robots.txt ruleset cache. Both are fields on
// the Client instance, guarded by mutexes, so that concurrent callers
// sharing one Client observe the same limits. Nothing in this package
// lives in package-level globals.
package fetch
