package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the database file created under the data directory.
const DBFileName = "webharvest.db"

// Query limits applied when callers pass zero.
const (
	DefaultSearchLimit = 10
	DefaultListLimit   = 100
)

// ScrapeDB stores scraped page content keyed by URL.
//
// Design decision: We use one database file for all pages rather than
// a file per site because:
//  1. Cross-site search stays a single query
//  2. Backup and inspection deal with one file
//  3. SQLite handles the volume comfortably
type ScrapeDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScrapeDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScrapeDB in dbDir.
// With CreateIfNotExists the directory and file are created as
// needed; without it a missing database is an error.
func Open(dbDir string, opts Options) (*ScrapeDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite DSN: mode=rw prevents creating new files,
	// mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScrapeDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScrapeDB) Close() error {
	return sdb.db.Close()
}

// Path returns the database file path.
func (sdb *ScrapeDB) Path() string {
	return sdb.dbPath
}

// createTables creates the schema if it doesn't exist.
// Timestamps are TEXT columns holding ISO 8601 strings.
func (sdb *ScrapeDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		content TEXT,
		format TEXT,
		metadata TEXT,
		created_at TEXT,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_updated ON pages(updated_at);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// PageRecord is one stored page.
type PageRecord struct {
	// ID is the row identifier, stable across re-stores of the URL.
	ID int64 `json:"id"`

	// URL is the page URL. Unique in the store.
	URL string `json:"url"`

	// Content is the stored page content.
	Content string `json:"content,omitempty"`

	// Format names how Content was produced (html, text, json).
	Format string `json:"format"`

	// Metadata holds arbitrary key/value context for the page.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the URL was first stored.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the URL was last stored.
	UpdatedAt time.Time `json:"updatedAt"`
}

// StorePage inserts or replaces the page stored for record.URL and
// returns the row ID. Re-storing a URL keeps its ID and CreatedAt and
// bumps UpdatedAt.
func (sdb *ScrapeDB) StorePage(ctx context.Context, record *PageRecord) (int64, error) {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	now := time.Now().UTC().Format(storedTimeFormat)

	query := `
	INSERT INTO pages (url, content, format, metadata, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		content = excluded.content,
		format = excluded.format,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at
	`

	if _, err := sdb.db.ExecContext(ctx, query,
		record.URL,
		record.Content,
		record.Format,
		string(metadataJSON),
		now,
		now,
	); err != nil {
		return 0, fmt.Errorf("failed to store page: %w", err)
	}

	// LastInsertId is unreliable under ON CONFLICT DO UPDATE, so read
	// the row ID back by URL.
	var id int64
	if err := sdb.db.QueryRowContext(ctx,
		"SELECT id FROM pages WHERE url = ?", record.URL).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read back page id: %w", err)
	}
	return id, nil
}

const pageColumns = "id, url, content, format, metadata, created_at, updated_at"

// GetPageByURL retrieves the page stored for url, or nil when the URL
// was never stored.
func (sdb *ScrapeDB) GetPageByURL(ctx context.Context, url string) (*PageRecord, error) {
	row := sdb.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE url = ?", url)
	return scanPage(row)
}

// GetPageByID retrieves a page by row ID, or nil when no row has it.
func (sdb *ScrapeDB) GetPageByID(ctx context.Context, id int64) (*PageRecord, error) {
	row := sdb.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	return scanPage(row)
}

// DeletePage removes a page addressed by URL or by numeric row ID.
// It reports whether a row was actually deleted.
func (sdb *ScrapeDB) DeletePage(ctx context.Context, urlOrID string) (bool, error) {
	var result sql.Result
	var err error

	if id, convErr := strconv.ParseInt(urlOrID, 10, 64); convErr == nil {
		result, err = sdb.db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", id)
	} else {
		result, err = sdb.db.ExecContext(ctx, "DELETE FROM pages WHERE url = ?", urlOrID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete page: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return affected > 0, nil
}

// SearchPages returns pages whose content or URL contains query as a
// substring, most recently updated first. A zero limit means the
// default of 10.
func (sdb *ScrapeDB) SearchPages(ctx context.Context, query string, limit int) ([]*PageRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := sdb.db.QueryContext(ctx, `
	SELECT `+pageColumns+` FROM pages
	WHERE instr(content, ?) > 0 OR instr(url, ?) > 0
	ORDER BY updated_at DESC
	LIMIT ?`, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// ListPages returns stored pages, most recently updated first. A zero
// limit means the default of 100.
func (sdb *ScrapeDB) ListPages(ctx context.Context, limit int) ([]*PageRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := sdb.db.QueryContext(ctx, `
	SELECT `+pageColumns+` FROM pages
	ORDER BY updated_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// CountPages returns the number of stored pages.
func (sdb *ScrapeDB) CountPages(ctx context.Context) (int, error) {
	var count int
	if err := sdb.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPage reads one page row. A missing row yields (nil, nil).
func scanPage(row rowScanner) (*PageRecord, error) {
	var record PageRecord
	var metadataJSON sql.NullString
	var createdAt, updatedAt sql.NullString

	err := row.Scan(
		&record.ID,
		&record.URL,
		&record.Content,
		&record.Format,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan page: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &record.Metadata); err != nil {
			record.Metadata = nil
		}
	}
	if createdAt.Valid {
		record.CreatedAt = parseTimestamp(createdAt.String)
	}
	if updatedAt.Valid {
		record.UpdatedAt = parseTimestamp(updatedAt.String)
	}

	return &record, nil
}

// collectPages reads every row from rows.
func collectPages(rows *sql.Rows) ([]*PageRecord, error) {
	var results []*PageRecord
	for rows.Next() {
		record, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

// storedTimeFormat is ISO 8601 with fixed-width fractional seconds.
// Fixed width keeps lexicographic TEXT ordering identical to time
// ordering, which ORDER BY updated_at relies on.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats the store may meet.
// Rows written by this package use a fixed-width RFC 3339 variant that
// RFC3339 parses; the extra formats cover databases touched by other
// tools.
var timestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts each known format, returning zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
