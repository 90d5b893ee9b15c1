package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/database"
)

// NewDBCmd creates the db command group.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Query the local page store",
		Long: `Db manages the SQLite database that scrape --store,
crawl --store, and db store write to.

The database lives in the XDG data directory by default
(~/.local/share/webharvest on Linux). Pages are keyed by URL; storing
a URL twice updates the existing row.`,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	cmd.AddCommand(newDBStoreCmd())
	cmd.AddCommand(newDBGetCmd())
	cmd.AddCommand(newDBDeleteCmd())
	cmd.AddCommand(newDBSearchCmd())
	cmd.AddCommand(newDBListCmd())
	cmd.AddCommand(newDBCountCmd())

	return cmd
}

// newDBStoreCmd creates the db store command.
func newDBStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store <url>",
		Short: "Store content under a URL",
		Long: `Store writes content into the page store keyed by URL.

Content comes from --content, --file, or stdin. Storing a URL that
already exists replaces its content and bumps the update time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			switch format {
			case "html", "text", "json":
			default:
				return fmt.Errorf("invalid format %q: must be html, text, or json", format)
			}

			content, err := storeContent(cmd)
			if err != nil {
				return err
			}
			meta, err := cmd.Flags().GetStringToString("meta")
			if err != nil {
				return err
			}

			return withDB(cmd, true, func(ctx context.Context, db *database.ScrapeDB) error {
				id, err := db.StorePage(ctx, &database.PageRecord{
					URL:      args[0],
					Content:  content,
					Format:   format,
					Metadata: meta,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (id %d)\n", args[0], id)
				return nil
			})
		},
	}

	cmd.Flags().String("content", "",
		"Content to store (default: read from stdin)")
	cmd.Flags().StringP("file", "f", "",
		"Read content from a file")
	cmd.Flags().String("format", "text",
		"Content format: html, text, or json")
	cmd.Flags().StringToString("meta", nil,
		"Metadata as key=value pairs")

	return cmd
}

// storeContent resolves the content source for db store:
// --content, then --file, then stdin.
func storeContent(cmd *cobra.Command) (string, error) {
	content, err := cmd.Flags().GetString("content")
	if err != nil {
		return "", err
	}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return "", err
	}
	if content != "" && file != "" {
		return "", errors.New("--content and --file are mutually exclusive")
	}
	if content != "" {
		return content, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read content file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// newDBGetCmd creates the db get command.
func newDBGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <url-or-id>",
		Short: "Fetch a stored page by URL or numeric ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, false, func(ctx context.Context, db *database.ScrapeDB) error {
				record, err := lookupPage(ctx, db, args[0])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no stored page for %q", args[0])
				}

				content, err := cmd.Flags().GetBool("content")
				if err != nil {
					return err
				}
				if content {
					fmt.Fprintln(cmd.OutOrStdout(), record.Content)
					return nil
				}
				return printRecordJSON(cmd.OutOrStdout(), record)
			})
		},
	}

	cmd.Flags().Bool("content", false,
		"Print only the stored content, not the full record")

	return cmd
}

// newDBDeleteCmd creates the db delete command.
func newDBDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url-or-id>",
		Short: "Delete a stored page by URL or numeric ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, false, func(ctx context.Context, db *database.ScrapeDB) error {
				deleted, err := db.DeletePage(ctx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("no stored page for %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// newDBSearchCmd creates the db search command.
func newDBSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored pages by content or URL substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, false, func(ctx context.Context, db *database.ScrapeDB) error {
				limit, err := cmd.Flags().GetInt("limit")
				if err != nil {
					return err
				}
				if limit < 1 || limit > 100 {
					return fmt.Errorf("limit must be between 1 and 100, got %d", limit)
				}

				records, err := db.SearchPages(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No pages match %q\n", args[0])
					return nil
				}
				printRecordList(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	cmd.Flags().IntP("limit", "n", database.DefaultSearchLimit,
		"Maximum number of results")

	return cmd
}

// newDBListCmd creates the db list command.
func newDBListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored pages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, false, func(ctx context.Context, db *database.ScrapeDB) error {
				limit, err := cmd.Flags().GetInt("limit")
				if err != nil {
					return err
				}

				records, err := db.ListPages(ctx, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pages stored")
					return nil
				}
				printRecordList(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	cmd.Flags().IntP("limit", "n", database.DefaultListLimit,
		"Maximum number of results")

	return cmd
}

// newDBCountCmd creates the db count command.
func newDBCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count stored pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, false, func(ctx context.Context, db *database.ScrapeDB) error {
				count, err := db.CountPages(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), count)
				return nil
			})
		},
	}
}

// withDB opens the database, runs fn, and closes it. Only db store
// creates a missing database; read operations report it as an error.
func withDB(cmd *cobra.Command, create bool, fn func(context.Context, *database.ScrapeDB) error) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database in %s: %w (run a scrape with --store first)", dbDir, err)
	}
	defer db.Close()

	return fn(cmd.Context(), db)
}

// lookupPage resolves a URL-or-ID argument the same way delete does:
// a decimal string is an ID, anything else a URL.
func lookupPage(ctx context.Context, db *database.ScrapeDB, urlOrID string) (*database.PageRecord, error) {
	if id, ok := parseID(urlOrID); ok {
		return db.GetPageByID(ctx, id)
	}
	return db.GetPageByURL(ctx, urlOrID)
}

// parseID reports whether s is a positive decimal integer.
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var id int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int64(r-'0')
	}
	return id, true
}

// printRecordJSON writes one record as indented JSON.
func printRecordJSON(w io.Writer, record *database.PageRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

// printRecordList writes a one-line summary per record.
func printRecordList(w io.Writer, records []*database.PageRecord) {
	for _, r := range records {
		title := r.Metadata["title"]
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%4d  %s  %s  %s\n",
			r.ID,
			r.UpdatedAt.Format("2006-01-02 15:04"),
			r.URL,
			title,
		)
	}
	fmt.Fprintf(w, "\n%d page(s)\n", len(records))
}
