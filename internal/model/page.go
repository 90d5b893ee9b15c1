package model

import "time"

// ScrapedPage represents a single fetched and processed page.
// It holds the raw HTTP outcome plus whichever processed projections
// (cleaned HTML, plain text, structured content) the caller requested.
//
// Design decision: We keep all projections optional on one struct
// rather than defining a type per projection because:
//  1. A crawl produces all of them in one pass
//  2. Callers can test for nil/empty rather than type-switch
//  3. JSON output stays flat and stable
type ScrapedPage struct {
	// URL is the fully qualified URL that was fetched.
	URL string `json:"url"`

	// Status is the HTTP response status code.
	Status int `json:"status"`

	// Title is the resolved page title. Empty for non-HTML content
	// or pages without a usable title.
	Title string `json:"title,omitempty"`

	// CleanedContent is the HTML after cleaning, when cleaning ran.
	CleanedContent string `json:"cleanedContent,omitempty"`

	// ExtractedText is the plain-text projection of the page body.
	ExtractedText string `json:"extractedText,omitempty"`

	// Structured is the structured content model, when extraction ran.
	Structured *StructuredContent `json:"structured,omitempty"`

	// Metadata describes the fetch itself.
	Metadata PageMetadata `json:"metadata"`
}

// PageMetadata records fetch-time facts about a scraped page.
type PageMetadata struct {
	// ScrapedAt is when the fetch completed.
	ScrapedAt time.Time `json:"scrapedAt"`

	// ContentType is the MIME type from the Content-Type header,
	// without parameters. Empty if the server sent none.
	ContentType string `json:"contentType,omitempty"`

	// Charset is the character set the body was decoded from.
	// Defaults to "utf-8" when the server declared nothing.
	Charset string `json:"charset"`

	// Size is the decoded body size in bytes.
	Size int `json:"size"`
}

// IsHTML reports whether the page's content type indicates HTML.
func (p *ScrapedPage) IsHTML() bool {
	return p.Metadata.ContentType == "text/html" ||
		p.Metadata.ContentType == "application/xhtml+xml"
}
