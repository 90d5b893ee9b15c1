package report

import (
	"io"

	"github.com/webharvest/webharvest/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl manifests and single pages in various
// formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteManifest outputs a full crawl manifest.
	// Returns the number of bytes written and any error encountered.
	WriteManifest(manifest *model.CrawlManifest) (int, error)

	// WritePage outputs a single scraped page.
	WritePage(page *model.ScrapedPage) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteManifest outputs the manifest to all configured Writers.
// Returns the total bytes written; stops on the first error.
func (m *MultiWriter) WriteManifest(manifest *model.CrawlManifest) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteManifest(manifest)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WritePage outputs the page to all configured Writers.
func (m *MultiWriter) WritePage(page *model.ScrapedPage) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WritePage(page)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
