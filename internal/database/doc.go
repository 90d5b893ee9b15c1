// Package database provides SQLite-based storage for scraped pages.
//
// The store keys pages on their URL: storing a page for a URL that
// already exists replaces its content in place while keeping the row
// identity and creation time. Timestamps are stored as ISO 8601 text
// so the database stays portable and inspectable with plain sqlite3.
package database
