package scrape

import "github.com/webharvest/webharvest/internal/model"

// ScrapeResult is the tagged output of a single-page scrape. Exactly
// one concrete type exists per mode, so callers dispatch on the mode
// tag (or type-switch) instead of probing optional fields.
//
// Design decision: We return a closed interface rather than a struct
// with three nullable payloads because:
//  1. The mode decides the payload; the type system can say so
//  2. Callers cannot observe half-populated combinations
//  3. New modes extend the union without touching existing variants
type ScrapeResult interface {
	// Mode returns the tag identifying the concrete variant.
	Mode() Mode

	// Page returns the underlying scraped page common to all modes.
	Page() *model.ScrapedPage
}

// HTMLResult is the ModeHTML variant: the cleaned HTML document.
type HTMLResult struct {
	// HTML is the cleaned document markup.
	HTML string

	page *model.ScrapedPage
}

// Mode returns ModeHTML.
func (r *HTMLResult) Mode() Mode { return ModeHTML }

// Page returns the underlying scraped page.
func (r *HTMLResult) Page() *model.ScrapedPage { return r.page }

// TextResult is the ModeText variant: the plain-text body.
type TextResult struct {
	// Text is the normalized plain text of the page body.
	Text string

	page *model.ScrapedPage
}

// Mode returns ModeText.
func (r *TextResult) Mode() Mode { return ModeText }

// Page returns the underlying scraped page.
func (r *TextResult) Page() *model.ScrapedPage { return r.page }

// StructuredResult is the ModeStructured variant.
type StructuredResult struct {
	// Content is the structured content model.
	Content *model.StructuredContent

	page *model.ScrapedPage
}

// Mode returns ModeStructured.
func (r *StructuredResult) Mode() Mode { return ModeStructured }

// Page returns the underlying scraped page.
func (r *StructuredResult) Page() *model.ScrapedPage { return r.page }

// resultFor wraps page in the variant matching mode.
func resultFor(mode Mode, page *model.ScrapedPage) ScrapeResult {
	switch mode {
	case ModeText:
		return &TextResult{Text: page.ExtractedText, page: page}
	case ModeStructured:
		return &StructuredResult{Content: page.Structured, page: page}
	default:
		return &HTMLResult{HTML: page.CleanedContent, page: page}
	}
}
