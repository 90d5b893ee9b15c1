package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/webharvest/webharvest/internal/model"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteManifest outputs a crawl summary followed by one line per page
// and, when present, one line per error.
func (w *SimpleWriter) WriteManifest(manifest *model.CrawlManifest) (int, error) {
	var b strings.Builder

	b.WriteString("Crawl of " + manifest.StartURL + "\n")
	fmt.Fprintf(&b, "  started:   %s\n", manifest.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  duration:  %s\n", manifest.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  pages:     %d\n", manifest.TotalPages)
	fmt.Fprintf(&b, "  errors:    %d\n", manifest.ErrorCount)
	b.WriteString("\n")

	if len(manifest.Pages) > 0 {
		b.WriteString("Pages:\n")
		for _, page := range manifest.Pages {
			title := page.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(&b, "  [%d] %s  %s\n", page.Status, page.URL, title)
		}
		b.WriteString("\n")
	}

	if len(manifest.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range manifest.Errors {
			fmt.Fprintf(&b, "  %s: %s\n", e.URL, e.Error)
		}
		b.WriteString("\n")
	}

	return io.WriteString(w.output, b.String())
}

// WritePage outputs a one-page summary with the extracted text when
// available, falling back to the cleaned content.
func (w *SimpleWriter) WritePage(page *model.ScrapedPage) (int, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s [%d]\n", page.URL, page.Status)
	if page.Title != "" {
		fmt.Fprintf(&b, "  title:        %s\n", page.Title)
	}
	fmt.Fprintf(&b, "  content-type: %s\n", page.Metadata.ContentType)
	fmt.Fprintf(&b, "  size:         %d bytes\n", page.Metadata.Size)
	fmt.Fprintf(&b, "  scraped:      %s\n", page.Metadata.ScrapedAt.Format("2006-01-02 15:04:05 MST"))

	body := page.ExtractedText
	if body == "" {
		body = page.CleanedContent
	}
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	return io.WriteString(w.output, b.String())
}
