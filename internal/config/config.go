package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webharvest"

	// DefaultTimeout is the per-request timeout. 30 seconds covers
	// slow origins without letting a hung connection stall a crawl.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages is the per-crawl page cap. Kept deliberately
	// small; crawling a stranger's site is a cost imposed on them.
	DefaultMaxPages = 10

	// DefaultCrawlDelay is the politeness pause between requests to
	// the same host. 1 second is conservative and respectful.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultConcurrency is how many URLs a batch scrapes at once.
	DefaultConcurrency = 5

	// DefaultUserAgent identifies webharvest in HTTP requests.
	// A descriptive User-Agent lets operators recognize the traffic.
	DefaultUserAgent = "webharvest/1.0 (+https://github.com/webharvest/webharvest)"

	// DefaultMaxBodySize limits response bodies to 5MB. Enough for
	// any HTML page while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Config holds all configuration options for webharvest.
// It is populated from CLI flags and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, CrawlConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without benefit.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxPages is the page cap for crawl operations, within [1, 100].
	MaxPages int

	// CrawlDelay is the pause between requests during crawling.
	CrawlDelay time.Duration

	// Concurrency is the number of concurrent scrapes in batch mode.
	Concurrency int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Zero means the default (5MB).
	MaxBodySize int64

	// RespectRobots gates requests on robots.txt. On by default;
	// turning it off is an explicit caller decision.
	RespectRobots bool

	// RequireHTTPS rejects plain http URLs during validation.
	RequireHTTPS bool

	// AllowLoopback permits loopback targets, for scraping services
	// the user runs locally. Private ranges stay rejected.
	AllowLoopback bool

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONOutput emits machine-readable JSON instead of text.
	// Mutually exclusive with MarkdownOutput.
	JSONOutput bool

	// MarkdownOutput emits Markdown reports.
	// Mutually exclusive with JSONOutput.
	MarkdownOutput bool

	// OutputFile is where reports are written. Empty means stdout.
	OutputFile string

	// DBDir is the directory holding the SQLite page store.
	// Empty means the XDG data directory.
	DBDir string

	// ConfigFilePath is the path to the .webharvest file. Empty means
	// search the current and home directories.
	ConfigFilePath string

	// Sites holds per-site overrides loaded from the config file.
	Sites *File
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because most defaults are non-zero, and the constructor
// documents what they are.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		MaxPages:      DefaultMaxPages,
		CrawlDelay:    DefaultCrawlDelay,
		Concurrency:   DefaultConcurrency,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		RespectRobots: true,
	}
}

// Validate checks the configuration, returning the first problem
// found. Called once after CLI parsing, before any network activity.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages < 1 || c.MaxPages > 100 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingReportFormats
	}
	return nil
}

// DatabaseDir returns the configured database directory, falling back
// to the XDG data directory.
func (c *Config) DatabaseDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// XDGDataDir returns the XDG data directory for webharvest.
// On Linux: ~/.local/share/webharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webharvest.
// On Linux: ~/.config/webharvest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for webharvest.
// On Linux: ~/.cache/webharvest
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}
