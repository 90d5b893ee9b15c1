package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/webharvest/webharvest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteManifest outputs the crawl manifest in Markdown format.
func (w *MarkdownWriter) WriteManifest(manifest *model.CrawlManifest) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, manifest)
	w.writeOutcomeChart(md, manifest)
	w.writePages(md, manifest)
	w.writeErrors(md, manifest)

	return len(md.String()), md.Build()
}

// WritePage outputs a single page in Markdown format.
func (w *MarkdownWriter) WritePage(page *model.ScrapedPage) (int, error) {
	md := markdown.NewMarkdown(w.output)

	title := page.Title
	if title == "" {
		title = page.URL
	}
	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + page.URL + "`"},
			{"Status", strconv.Itoa(page.Status)},
			{"Content-Type", page.Metadata.ContentType},
			{"Size", strconv.Itoa(page.Metadata.Size) + " bytes"},
			{"Scraped", page.Metadata.ScrapedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if page.ExtractedText != "" {
		md.H2("Content")
		md.PlainText("")
		md.PlainText(page.ExtractedText)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// writeHeader writes the manifest header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, manifest *model.CrawlManifest) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + manifest.StartURL + "`"},
			{"Started", manifest.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", manifest.Duration.String()},
			{"Pages", strconv.Itoa(manifest.TotalPages)},
			{"Errors", strconv.Itoa(manifest.ErrorCount)},
		},
	})
	md.PlainText("")

	if manifest.ErrorCount > 0 {
		md.Warningf("%d page(s) failed during the crawl; see the errors section.",
			manifest.ErrorCount)
	} else {
		md.Tip("Crawl completed without page errors.")
	}
	md.PlainText("")
}

// writeOutcomeChart writes a mermaid pie chart of the crawl outcome.
func (w *MarkdownWriter) writeOutcomeChart(md *markdown.Markdown, manifest *model.CrawlManifest) {
	if manifest.SuccessCount == 0 && manifest.ErrorCount == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Crawl Outcome"),
		piechart.WithShowData(true),
	)

	if manifest.SuccessCount > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(manifest.SuccessCount))
	}
	if manifest.ErrorCount > 0 {
		chart.LabelAndIntValue("Failed", uint64(manifest.ErrorCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the crawled pages table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, manifest *model.CrawlManifest) {
	md.H2("Pages")
	md.PlainText("")

	if len(manifest.Pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(manifest.Pages))
	for i, page := range manifest.Pages {
		title := page.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			"`" + truncateString(page.URL, 60) + "`",
			strconv.Itoa(page.Status),
			truncateString(title, 50),
			strconv.Itoa(page.Metadata.Size),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Title", "Size"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors writes the per-page error table.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, manifest *model.CrawlManifest) {
	if len(manifest.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")

	rows := make([][]string, len(manifest.Errors))
	for i, e := range manifest.Errors {
		rows[i] = []string{
			"`" + truncateString(e.URL, 60) + "`",
			truncateString(e.Error, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
