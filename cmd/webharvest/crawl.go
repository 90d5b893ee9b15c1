package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/database"
	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/scrape"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site starting from a seed URL",
		Long: `Crawl performs a bounded breadth-first crawl from a seed URL.

Discovered pages are fetched politely: the crawl pauses between pages,
honors robots.txt rules and crawl-delay directives, and stays on the
seed's domain unless told otherwise. Pages that fail are recorded in
the manifest without stopping the crawl.

Examples:
  # Crawl up to 10 pages from a seed
  webharvest crawl https://example.com/

  # Crawl more pages with a longer pause
  webharvest crawl --max-pages 50 --delay 2s https://example.com/

  # Skip URL patterns and store the results
  webharvest crawl --ignore /admin/ --ignore logout --store https://example.com/

  # Emit the manifest as a Markdown report
  webharvest crawl --markdown -o report.md https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between page fetches")
	cmd.Flags().Bool("all-domains", false,
		"Follow links off the seed's domain")
	cmd.Flags().StringSlice("ignore", nil,
		"URL substring to skip (repeatable)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().StringP("user-agent", "u", "",
		"Override the User-Agent header")
	cmd.Flags().Bool("no-robots", false,
		"Skip robots.txt checks (use responsibly)")
	cmd.Flags().Bool("allow-loopback", false,
		"Permit localhost seeds (private ranges stay rejected)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webharvest in current or home directory)")

	// Output flags
	addOutputFlags(cmd)

	// Storage flags
	cmd.Flags().BoolP("store", "s", false,
		"Store crawled pages in the local database")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	maxPages, err := cmd.Flags().GetInt("max-pages")
	if err != nil {
		return err
	}
	delay, err := cmd.Flags().GetDuration("delay")
	if err != nil {
		return err
	}
	allDomains, err := cmd.Flags().GetBool("all-domains")
	if err != nil {
		return err
	}
	ignore, err := cmd.Flags().GetStringSlice("ignore")
	if err != nil {
		return err
	}
	store, err := cmd.Flags().GetBool("store")
	if err != nil {
		return err
	}

	seed := args[0]

	req := scrape.NewCrawlRequest(seed)
	req.MaxPages = maxPages
	req.Delay = delay
	req.SameDomainOnly = !allDomains
	req.RespectRobots = cfg.RespectRobots

	// Merge ignore patterns from the flag and the site config.
	sc := siteConfigFor(cfg, seed)
	req.IgnorePatterns = append(append([]string{}, ignore...), sc.IgnorePatterns...)

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

	scraper := newScraperForTarget(cfg, logger, seed)

	fmt.Fprintf(os.Stderr, "Crawling %s...\n", seed)
	start := time.Now()

	manifest, crawlErr := scraper.Crawl(ctx, req)

	if manifest != nil {
		fmt.Fprintf(os.Stderr, "Crawl finished in %s (%d pages, %d errors)\n\n",
			time.Since(start).Round(time.Millisecond),
			manifest.TotalPages, manifest.ErrorCount)

		if _, err := writer.WriteManifest(manifest); err != nil {
			logger.Error("report failed", "seed", seed, "error", err)
		}
		if err := saveManifestPages(ctx, db, manifest, logger); err != nil {
			logger.Error("failed to store pages", "seed", seed, "error", err)
		}
	}

	// A cancelled crawl still reported its partial manifest above.
	return crawlErr
}

// saveManifestPages stores every crawled page in the database. If db
// is nil, this function is a no-op.
func saveManifestPages(ctx context.Context, db *database.ScrapeDB, manifest *model.CrawlManifest, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	for _, page := range manifest.Pages {
		content := page.ExtractedText
		format := "text"
		if content == "" {
			content = page.CleanedContent
			format = "html"
		}

		record := &database.PageRecord{
			URL:      page.URL,
			Content:  content,
			Format:   format,
			Metadata: pageMetadataMap(page),
		}
		if _, err := db.StorePage(ctx, record); err != nil {
			return fmt.Errorf("failed to store %s: %w", page.URL, err)
		}
	}

	logger.Info("crawl pages stored", "count", len(manifest.Pages))
	return nil
}
