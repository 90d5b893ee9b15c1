package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/database"
	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/log"
	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/report"
	"github.com/webharvest/webharvest/internal/scrape"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape one or more web pages",
		Long: `Scrape fetches a page, cleans it, and outputs the requested projection.

The page passes through validation (scheme and private-network checks),
a robots.txt check, a rate-limited fetch with retries, HTML cleaning,
and structured extraction.

Examples:
  # Scrape a page and print the cleaned HTML
  webharvest scrape https://example.com/article

  # Extract plain text
  webharvest scrape --mode text https://example.com/article

  # Structured extraction as JSON
  webharvest scrape --mode structured --json https://example.com/article

  # Follow same-domain links two levels deep
  webharvest scrape --follow-links --depth 2 https://example.com/

  # Scrape several pages concurrently and store them
  webharvest scrape --store https://a.example https://b.example

Configuration file (.webharvest) example:
  defaults:
    delay: 2s
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Scrape behavior flags
	cmd.Flags().String("mode", "html",
		"Output projection: html, text, or structured")
	cmd.Flags().Bool("follow-links", false,
		"Follow same-domain links from the page")
	cmd.Flags().IntP("depth", "d", 1,
		"Link-following depth when --follow-links is set (max 3)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each scrape")
	cmd.Flags().StringP("user-agent", "u", "",
		"Override the User-Agent header")
	cmd.Flags().Bool("no-robots", false,
		"Skip robots.txt checks (use responsibly)")
	cmd.Flags().Bool("require-https", false,
		"Reject plain http URLs")
	cmd.Flags().Bool("allow-loopback", false,
		"Permit localhost targets (private ranges stay rejected)")

	// Batch scraping flags
	cmd.Flags().IntP("batch", "b", config.DefaultConcurrency,
		"Number of concurrent scrapes when multiple URLs are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webharvest in current or home directory)")

	// Output flags
	addOutputFlags(cmd)

	// Storage flags
	cmd.Flags().BoolP("store", "s", false,
		"Store scraped pages in the local database")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if len(args) == 0 {
		return config.ErrNoTarget
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	modeStr, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}
	mode, err := scrape.ParseMode(modeStr)
	if err != nil {
		return err
	}
	followLinks, err := cmd.Flags().GetBool("follow-links")
	if err != nil {
		return err
	}
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}
	store, err := cmd.Flags().GetBool("store")
	if err != nil {
		return err
	}

	var db *database.ScrapeDB
	if store {
		db, err = database.Open(cfg.DatabaseDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DatabaseDir())
	}

	output, closeOutput, err := openOutput(cfg.OutputFile)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	requests := make([]scrape.ScrapeRequest, len(args))
	for i, target := range args {
		req := scrape.NewScrapeRequest(target)
		req.Mode = mode
		req.FollowLinks = followLinks
		if followLinks {
			req.Depth = depth
		}
		req.RespectRobots = cfg.RespectRobots
		req.Timeout = cfg.Timeout
		if sc := siteConfigFor(cfg, target); sc.UserAgent != "" {
			req.UserAgent = sc.UserAgent
		}
		requests[i] = req
	}

	if len(requests) > 1 && cfg.Concurrency > 1 {
		return runBatchScrape(ctx, cfg, requests, writer, db, logger)
	}
	return runSequentialScrape(ctx, cfg, requests, writer, db, logger)
}

// runSequentialScrape scrapes targets one at a time, each with its own
// site-specific client.
func runSequentialScrape(ctx context.Context, cfg *config.Config, requests []scrape.ScrapeRequest, writer report.Writer, db *database.ScrapeDB, logger *slog.Logger) error {
	var firstErr error
	for _, req := range requests {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		scraper := newScraperForTarget(cfg, logger, req.URL)

		start := time.Now()
		result, err := scraper.ScrapeURL(ctx, req)
		if err != nil {
			logger.Error("scrape failed", "url", req.URL, "error", err)
			fmt.Fprintf(os.Stderr, "Scrape error for %s: %v\n", req.URL, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Info("scrape completed",
			"url", req.URL,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		if _, err := writer.WritePage(result.Page()); err != nil {
			logger.Error("report failed", "url", req.URL, "error", err)
		}
		if err := savePage(ctx, db, result, logger); err != nil {
			logger.Error("failed to store page", "url", req.URL, "error", err)
		}
	}
	return firstErr
}

// runBatchScrape scrapes multiple targets concurrently.
// Site-specific configs apply only to the shared client's defaults.
func runBatchScrape(ctx context.Context, cfg *config.Config, requests []scrape.ScrapeRequest, writer report.Writer, db *database.ScrapeDB, logger *slog.Logger) error {
	if cfg.Sites != nil && len(cfg.Sites.Sites) > 0 {
		logger.Warn("batch scraping applies default site config only",
			"siteCount", len(cfg.Sites.Sites))
	}

	fmt.Fprintf(os.Stderr, "Scraping %d URLs (concurrency: %d)...\n",
		len(requests), cfg.Concurrency)
	start := time.Now()

	scraper := newScraperForTarget(cfg, logger, "")
	results, err := scraper.BatchScrape(ctx, requests,
		scrape.WithConcurrency(cfg.Concurrency))
	if err != nil {
		return err
	}

	var firstErr error
	for _, br := range results {
		if br.Err != nil {
			fmt.Fprintf(os.Stderr, "Scrape error for %s: %v\n", br.Request.URL, br.Err)
			if firstErr == nil {
				firstErr = br.Err
			}
			continue
		}
		if _, err := writer.WritePage(br.Result.Page()); err != nil {
			logger.Error("report failed", "url", br.Request.URL, "error", err)
		}
		if err := savePage(ctx, db, br.Result, logger); err != nil {
			logger.Error("failed to store page", "url", br.Request.URL, "error", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nBatch completed in %s\n",
		time.Since(start).Round(time.Millisecond))
	return firstErr
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	// Not every command registers every flag; absent flags keep the
	// config defaults.
	flags := cmd.Flags()
	var err error

	if flags.Lookup("timeout") != nil {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("user-agent") != nil {
		ua, err := flags.GetString("user-agent")
		if err != nil {
			return nil, err
		}
		if ua != "" {
			cfg.UserAgent = ua
		}
	}
	if flags.Lookup("no-robots") != nil {
		noRobots, err := flags.GetBool("no-robots")
		if err != nil {
			return nil, err
		}
		cfg.RespectRobots = !noRobots
	}
	if flags.Lookup("require-https") != nil {
		if cfg.RequireHTTPS, err = flags.GetBool("require-https"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("allow-loopback") != nil {
		if cfg.AllowLoopback, err = flags.GetBool("allow-loopback"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("batch") != nil {
		if cfg.Concurrency, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("json") != nil {
		if cfg.JSONOutput, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("markdown") != nil {
		if cfg.MarkdownOutput, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("output") != nil {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("db-dir") != nil {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("config") != nil {
		if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
			return nil, err
		}
	}

	// Load site-specific configurations from the config file.
	// If the user explicitly specified a path, error if it is missing.
	// Otherwise silently use an empty config when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		sites, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Sites = sites
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Sites = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	return cfg, nil
}

// addOutputFlags registers the report format flags shared by scrape
// and crawl.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
// The sanitizing handler keeps site-config cookies and auth headers
// out of the log stream.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// newScraperForTarget creates a Scraper whose fetch client carries the
// global config plus any per-site overrides for the target's host.
// An empty target applies the defaults only.
func newScraperForTarget(cfg *config.Config, logger *slog.Logger, target string) *scrape.Scraper {
	sc := siteConfigFor(cfg, target)

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithMinInterval(cfg.CrawlDelay),
		fetch.WithLogger(logger),
	}
	if sc.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(sc.UserAgent))
	}
	if sc.Delay != 0 {
		opts = append(opts, fetch.WithMinInterval(sc.Delay.Std()))
	}
	if headers := siteHeaders(sc); len(headers) > 0 {
		opts = append(opts, fetch.WithHeaders(headers))
	}

	client := fetch.NewClient(opts...)

	scraperOpts := []scrape.Option{
		scrape.WithClient(client),
		scrape.WithLogger(logger),
	}
	if cfg.AllowLoopback {
		scraperOpts = append(scraperOpts, scrape.WithAllowLoopback())
	}
	return scrape.New(scraperOpts...)
}

// siteConfigFor resolves the effective site config for a target URL.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.Sites == nil {
		return config.SiteConfig{}
	}
	host := ""
	if u, err := url.Parse(target); err == nil {
		host = u.Hostname()
	}
	return cfg.Sites.GetSiteConfig(host)
}

// siteHeaders flattens a site config's headers and cookie into one
// request-header map.
func siteHeaders(sc config.SiteConfig) map[string]string {
	headers := make(map[string]string, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		headers[k] = v
	}
	if sc.Cookie != "" {
		headers["Cookie"] = sc.Cookie
	}
	return headers
}

// newReportWriter selects the report format from the config.
func newReportWriter(cfg *config.Config, output *os.File) report.Writer {
	switch {
	case cfg.JSONOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownOutput:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output)
	}
}

// openOutput opens the report destination. An empty path means stdout.
// The returned func closes the file; it is a no-op for stdout.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// 0600: scraped content may come from authenticated sessions.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort close
}

// savePage stores a scrape result in the database. If db is nil, this
// function is a no-op.
func savePage(ctx context.Context, db *database.ScrapeDB, result scrape.ScrapeResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	record, err := recordFromResult(result)
	if err != nil {
		return err
	}

	id, err := db.StorePage(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to store page: %w", err)
	}

	logger.Info("page stored", "url", record.URL, "id", id)
	return nil
}

// recordFromResult converts a scrape result into a database record.
// The stored content is the projection the caller asked for;
// structured results are stored JSON-encoded under format "json".
func recordFromResult(result scrape.ScrapeResult) (*database.PageRecord, error) {
	page := result.Page()

	var content, format string
	switch r := result.(type) {
	case *scrape.HTMLResult:
		content = r.HTML
		format = "html"
	case *scrape.TextResult:
		content = r.Text
		format = "text"
	case *scrape.StructuredResult:
		data, err := json.Marshal(r.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode structured content: %w", err)
		}
		content = string(data)
		format = "json"
	default:
		return nil, errors.New("unknown scrape result type")
	}

	return &database.PageRecord{
		URL:      page.URL,
		Content:  content,
		Format:   format,
		Metadata: pageMetadataMap(page),
	}, nil
}

// pageMetadataMap flattens page metadata into the record's string map.
func pageMetadataMap(page *model.ScrapedPage) map[string]string {
	meta := map[string]string{
		"status":      fmt.Sprintf("%d", page.Status),
		"contentType": page.Metadata.ContentType,
		"charset":     page.Metadata.Charset,
	}
	if page.Title != "" {
		meta["title"] = page.Title
	}
	return meta
}
