package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/webharvest/webharvest/internal/clean"
	"github.com/webharvest/webharvest/internal/model"
)

// Options selects which structured fields to populate. The zero value
// populates everything except the toggleable collections.
type Options struct {
	// Links populates StructuredContent.Links.
	Links bool

	// Images populates StructuredContent.Images.
	Images bool

	// Meta populates StructuredContent.Meta.
	Meta bool
}

// AllOptions enables every collection.
func AllOptions() Options {
	return Options{Links: true, Images: true, Meta: true}
}

// Extract parses htmlStr into the structured content model, resolving
// link and image URLs against baseURL. Every collection is populated.
func Extract(htmlStr, baseURL string) (*model.StructuredContent, error) {
	return ExtractWithOptions(htmlStr, baseURL, AllOptions())
}

// ExtractWithOptions is Extract with per-collection control.
//
// The only error condition is an unusable base URL; malformed HTML
// degrades to partially empty fields instead of failing.
func ExtractWithOptions(htmlStr, baseURL string, opts Options) (*model.StructuredContent, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	content := &model.StructuredContent{
		Headings: model.Headings{
			H1: make([]string, 0),
			H2: make([]string, 0),
			H3: make([]string, 0),
		},
		Paragraphs: make([]string, 0),
		Links:      make([]model.LinkInfo, 0),
		Images:     make([]model.ImageInfo, 0),
		Sections:   make([]model.Section, 0),
	}

	content.Title = resolveTitle(doc)
	extractHeadings(doc, content)
	extractParagraphs(doc, content)

	if opts.Links {
		extractLinks(doc, base, content)
	}
	if opts.Images {
		extractImages(doc, base, content)
	}
	if opts.Meta {
		extractMeta(doc, base, content)
	}

	content.Sections = extractSections(doc)
	content.PageType = Classify(doc)

	return content, nil
}

// resolveTitle picks the page title: <title> text first, then og:title,
// then the first <h1>.
func resolveTitle(doc *goquery.Document) string {
	if t := clean.NormalizeWhitespace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := clean.NormalizeWhitespace(og); t != "" {
			return t
		}
	}
	return clean.NormalizeWhitespace(doc.Find("h1").First().Text())
}

// extractHeadings collects h1/h2/h3 text per level.
func extractHeadings(doc *goquery.Document, content *model.StructuredContent) {
	collect := func(selector string) []string {
		out := make([]string, 0)
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if t := clean.NormalizeWhitespace(sel.Text()); t != "" {
				out = append(out, t)
			}
		})
		return out
	}

	content.Headings.H1 = collect("h1")
	content.Headings.H2 = collect("h2")
	content.Headings.H3 = collect("h3")
}

// minParagraphChars filters out button labels and similar short noise.
const minParagraphChars = 20

// extractParagraphs collects paragraph text of useful length. Length
// is counted in runes so multi-byte scripts are measured the same way
// as ASCII.
func extractParagraphs(doc *goquery.Document, content *model.StructuredContent) {
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		t := clean.NormalizeWhitespace(sel.Text())
		if utf8.RuneCountInString(t) >= minParagraphChars {
			content.Paragraphs = append(content.Paragraphs, t)
		}
	})
}

// extractLinks collects anchors, resolving each href against base.
// Anchors that cannot be resolved are dropped silently.
func extractLinks(doc *goquery.Document, base *url.URL, content *model.StructuredContent) {
	baseHost := strings.ToLower(base.Hostname())

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == nil {
			return
		}

		internal := strings.EqualFold(resolved.Hostname(), baseHost)
		link := model.LinkInfo{
			Href:       resolved.String(),
			Text:       clean.NormalizeWhitespace(sel.Text()),
			IsInternal: internal,
			IsExternal: !internal,
		}
		if title, ok := sel.Attr("title"); ok {
			link.Title = title
		}
		content.Links = append(content.Links, link)
	})
}

// extractImages collects images, resolving each src against base.
// Width/height attributes are parsed defensively: absent or
// non-numeric values yield no value rather than zero.
func extractImages(doc *goquery.Document, base *url.URL, content *model.StructuredContent) {
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		resolved := resolveURL(base, src)
		if resolved == nil {
			return
		}

		img := model.ImageInfo{Src: resolved.String()}
		if alt, ok := sel.Attr("alt"); ok {
			img.Alt = alt
		}
		if title, ok := sel.Attr("title"); ok {
			img.Title = title
		}
		img.Width = parseDimension(sel, "width")
		img.Height = parseDimension(sel, "height")

		content.Images = append(content.Images, img)
	})
}

// parseDimension reads a numeric attribute, returning nil when the
// attribute is absent or not a plain integer.
func parseDimension(sel *goquery.Selection, attr string) *int {
	raw, ok := sel.Attr(attr)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// extractMeta collects document metadata from meta tags and the
// canonical link element.
func extractMeta(doc *goquery.Document, base *url.URL, content *model.StructuredContent) {
	metaContent := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}

	content.Meta = model.PageMeta{
		Description:   metaContent(`meta[name="description"]`),
		Keywords:      metaContent(`meta[name="keywords"]`),
		Author:        metaContent(`meta[name="author"]`),
		OGTitle:       metaContent(`meta[property="og:title"]`),
		OGDescription: metaContent(`meta[property="og:description"]`),
		OGImage:       metaContent(`meta[property="og:image"]`),
		TwitterCard:   metaContent(`meta[name="twitter:card"]`),
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if resolved := resolveURL(base, href); resolved != nil {
			content.Meta.Canonical = resolved.String()
		}
	}
}

// resolveURL resolves a possibly-relative reference against base.
// Non-fetchable schemes and malformed references return nil.
func resolveURL(base *url.URL, ref string) *url.URL {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "#" {
		return nil
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(strings.ToLower(ref), scheme) {
			return nil
		}
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	return resolved
}

// headingLevel maps a node to its heading level, or 0 for non-headings.
func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.Data {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	}
	return 0
}

// openSection is a section under construction on the builder stack.
type openSection struct {
	heading string
	level   int
	text    strings.Builder
	order   int
}

// extractSections builds heading-delimited sections with an explicit
// stack machine: a new heading closes every open section whose level
// is greater than or equal to its own, then opens its own section.
// Body text accumulates into every open section, so an h1 section
// contains the text of its subordinate h2/h3 sections. This handles
// nested and out-of-order heading structures that a flat
// sibling-walk would mangle.
func extractSections(doc *goquery.Document) []model.Section {
	var root *html.Node
	if body := doc.Find("body").First(); body.Length() > 0 {
		root = body.Get(0)
	} else if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	} else {
		return []model.Section{}
	}

	type indexed struct {
		section model.Section
		order   int
	}

	var stack []*openSection
	var closed []indexed
	order := 0

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		closed = append(closed, indexed{
			section: model.Section{
				Heading: top.heading,
				Content: clean.NormalizeWhitespace(top.text.String()),
				Level:   top.level,
			},
			order: top.order,
		})
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if level := headingLevel(n); level > 0 {
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				closeTop()
			}
			sec := &openSection{
				heading: clean.NormalizeWhitespace(nodeText(n)),
				level:   level,
				order:   order,
			}
			order++
			stack = append(stack, sec)
			return // Heading text is not section content.
		}

		if n.Type == html.TextNode {
			for _, sec := range stack {
				sec.text.WriteString(n.Data)
				sec.text.WriteString(" ")
			}
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for len(stack) > 0 {
		closeTop()
	}

	// Sections close innermost-first; restore document order.
	sections := make([]model.Section, len(closed))
	for _, item := range closed {
		sections[item.order] = item.section
	}
	return sections
}

// nodeText returns the concatenated text of n's subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// HTMLToText converts an HTML document to normalized plain text.
// Script, style, noscript, and iframe subtrees are dropped; the body
// text (or the whole document when there is no body) is collapsed to
// single-spaced text.
func HTMLToText(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return clean.NormalizeWhitespace(sel.Text()), nil
}
