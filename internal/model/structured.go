package model

// StructuredContent is the normalized content model extracted from a
// single HTML document.
type StructuredContent struct {
	// Title is the resolved title: <title> text, then og:title,
	// then the first <h1>, whichever is found first.
	Title string `json:"title,omitempty"`

	// Headings holds the text of all h1/h2/h3 elements per level.
	Headings Headings `json:"headings"`

	// Paragraphs holds paragraph text of at least 20 characters.
	// The threshold filters out button labels and similar noise.
	Paragraphs []string `json:"paragraphs"`

	// Links holds every anchor with a resolvable absolute URL.
	Links []LinkInfo `json:"links"`

	// Images holds every image with a resolvable absolute source.
	Images []ImageInfo `json:"images"`

	// Meta holds page-level metadata from meta and link elements.
	Meta PageMeta `json:"meta"`

	// Sections associates headings with their following content.
	Sections []Section `json:"sections"`

	// PageType is an advisory classification of the document.
	PageType PageType `json:"pageType,omitempty"`
}

// Headings groups heading text by level.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
}

// LinkInfo describes a single resolved anchor.
// Internal and External are mutually exclusive and computed from
// hostname equality with the page's base URL.
type LinkInfo struct {
	// Href is the absolute URL the anchor resolves to.
	Href string `json:"href"`

	// Text is the anchor's visible text.
	Text string `json:"text"`

	// Title is the anchor's title attribute, if present.
	Title string `json:"title,omitempty"`

	// IsInternal is true when the link's hostname equals the base
	// URL's hostname.
	IsInternal bool `json:"isInternal"`

	// IsExternal is the negation of IsInternal.
	IsExternal bool `json:"isExternal"`
}

// ImageInfo describes a single resolved image reference.
type ImageInfo struct {
	// Src is the absolute image URL.
	Src string `json:"src"`

	// Alt is the alt text, if present.
	Alt string `json:"alt,omitempty"`

	// Title is the title attribute, if present.
	Title string `json:"title,omitempty"`

	// Width is the parsed width attribute. Nil when the attribute is
	// absent or not numeric; never zero-by-default.
	Width *int `json:"width,omitempty"`

	// Height is the parsed height attribute, same rules as Width.
	Height *int `json:"height,omitempty"`
}

// PageMeta holds document metadata from meta tags and canonical links.
type PageMeta struct {
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	Author        string `json:"author,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
	TwitterCard   string `json:"twitterCard,omitempty"`
	Canonical     string `json:"canonical,omitempty"`
}

// Section pairs a heading with the content that follows it, up to the
// next heading of equal or higher rank.
type Section struct {
	// Heading is the section's heading text. Empty for leading
	// content that appears before the first heading.
	Heading string `json:"heading,omitempty"`

	// Content is the accumulated text of the section body.
	Content string `json:"content"`

	// Level is the heading level, 1 through 3.
	Level int `json:"level"`
}

// PageType is an advisory classification of a document's genre.
// It is metadata only and never changes extraction behavior.
type PageType string

// Page type values, from most to least specific.
const (
	PageTypeArticle       PageType = "article"
	PageTypeProduct       PageType = "product"
	PageTypeDocumentation PageType = "documentation"
	PageTypeHomepage      PageType = "homepage"
	PageTypeGeneric       PageType = "generic"
)
