package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/scrape"
)

// NewLinksCmd creates the links command.
func NewLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links <url>",
		Short: "List the links on a page",
		Long: `Links fetches a page and lists every resolvable anchor on it.

Relative hrefs are resolved against the page URL. Links are classified
as internal (same hostname) or external, and the list can be filtered
to either group.

Examples:
  # List all links
  webharvest links https://example.com/

  # Only links that stay on the site
  webharvest links --internal https://example.com/

  # Outbound links as JSON
  webharvest links --external --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runLinksCmd,
	}

	cmd.Flags().Bool("internal", false,
		"Only links on the page's own hostname")
	cmd.Flags().Bool("external", false,
		"Only links to other hostnames")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for the page fetch")
	cmd.Flags().StringP("user-agent", "u", "",
		"Override the User-Agent header")
	cmd.Flags().Bool("no-robots", false,
		"Skip robots.txt checks (use responsibly)")
	cmd.Flags().Bool("allow-loopback", false,
		"Permit localhost targets (private ranges stay rejected)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webharvest in current or home directory)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// runLinksCmd executes the links command.
func runLinksCmd(cmd *cobra.Command, args []string) error {
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

	internal, err := cmd.Flags().GetBool("internal")
	if err != nil {
		return err
	}
	external, err := cmd.Flags().GetBool("external")
	if err != nil {
		return err
	}

	target := args[0]
	scraper := newScraperForTarget(cfg, logger, target)

	links, err := scraper.ListLinks(ctx, target, scrape.LinkFilter{
		InternalOnly:  internal,
		ExternalOnly:  external,
		RespectRobots: cfg.RespectRobots,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if cfg.JSONOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(links)
	}

	for _, link := range links {
		kind := "external"
		if link.IsInternal {
			kind = "internal"
		}
		if link.Text != "" {
			fmt.Fprintf(out, "[%s] %s  %s\n", kind, link.Href, link.Text)
		} else {
			fmt.Fprintf(out, "[%s] %s\n", kind, link.Href)
		}
	}
	fmt.Fprintf(out, "\n%d link(s)\n", len(links))

	return nil
}
