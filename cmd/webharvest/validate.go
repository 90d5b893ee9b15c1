package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/scrape"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <url>",
		Short: "Check whether a URL is safe and allowed to scrape",
		Long: `Validate runs a URL through the same checks a scrape would apply.

The scheme must be http or https, the host must not be a loopback,
private, or link-local address, and the URL must parse cleanly. With
--robots the target's robots.txt is consulted as well.

The exit code is 0 when the URL passes and 1 when it fails, so the
command works in shell pipelines.

Examples:
  webharvest validate https://example.com/page
  webharvest validate --robots https://example.com/private/
  webharvest validate --require-https http://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runValidateCmd,
	}

	cmd.Flags().Bool("robots", false,
		"Also consult the target's robots.txt")
	cmd.Flags().Bool("require-https", false,
		"Reject plain http URLs")
	cmd.Flags().Bool("allow-loopback", false,
		"Permit localhost targets (private ranges stay rejected)")
	cmd.Flags().StringP("user-agent", "u", "",
		"Override the User-Agent header")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	checkRobots, err := cmd.Flags().GetBool("robots")
	if err != nil {
		return err
	}

	target := args[0]
	scraper := newScraperForTarget(cfg, logger, target)

	rep := scraper.ValidateURL(ctx, target, scrape.ValidateOptions{
		CheckRobots:  checkRobots,
		RequireHTTPS: cfg.RequireHTTPS,
	})

	out := cmd.OutOrStdout()

	if cfg.JSONOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rep); err != nil {
			return err
		}
	} else {
		if rep.Valid {
			fmt.Fprintf(out, "%s: valid\n", rep.URL)
		} else {
			fmt.Fprintf(out, "%s: invalid (%s)\n", rep.URL, rep.Reason)
		}
		if rep.RobotsChecked {
			if rep.RobotsAllowed {
				fmt.Fprintln(out, "robots.txt: allowed")
			} else {
				fmt.Fprintln(out, "robots.txt: disallowed")
			}
		}
	}

	if !rep.Valid || (rep.RobotsChecked && !rep.RobotsAllowed) {
		return fmt.Errorf("validation failed for %s", target)
	}
	return nil
}
