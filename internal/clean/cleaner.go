package clean

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Options selects which node categories Clean removes. Each flag is
// independent; zero-value Options cleans nothing.
type Options struct {
	// RemoveScripts strips script and noscript elements.
	RemoveScripts bool

	// RemoveStyles strips style elements and inline style attributes.
	RemoveStyles bool

	// RemoveComments strips HTML comment nodes.
	RemoveComments bool

	// RemoveTrackers strips known analytics/tracker scripts and pixels,
	// matched by source-attribute substrings.
	RemoveTrackers bool

	// RemoveAds strips known ad containers, matched by class/id
	// substrings.
	RemoveAds bool
}

// DefaultOptions enables every cleaning category.
func DefaultOptions() Options {
	return Options{
		RemoveScripts:  true,
		RemoveStyles:   true,
		RemoveComments: true,
		RemoveTrackers: true,
		RemoveAds:      true,
	}
}

// trackerPatterns are source-attribute substrings identifying known
// analytics and tracking embeds. Matched against script src, img src,
// and iframe src.
var trackerPatterns = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"connect.facebook.net",
	"facebook.com/tr",
	"hotjar.com",
	"segment.com",
	"segment.io",
	"mixpanel.com",
	"matomo",
	"piwik",
	"quantserve.com",
	"scorecardresearch.com",
	"adsystem",
	"pixel",
}

// adPatterns are class/id substrings identifying known ad containers.
// Kept specific enough to avoid catching words that merely contain
// "ad" (e.g. "header", "breadcrumb").
var adPatterns = []string{
	"advertisement",
	"advert",
	"adsbygoogle",
	"ad-banner",
	"ad-container",
	"ad-slot",
	"ad-wrapper",
	"banner-ad",
	"sponsored",
	"sponsor-box",
	"promo-banner",
}

// spamPatterns match promotional language. A node whose text matches
// any of these is dropped by RemoveSpam.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbuy now\b`),
	regexp.MustCompile(`(?i)\blimited[ -]time offer\b`),
	regexp.MustCompile(`(?i)\bclick here to\b`),
	regexp.MustCompile(`(?i)\bact now\b`),
	regexp.MustCompile(`(?i)\b100% free\b`),
	regexp.MustCompile(`(?i)\bmoney[ -]back guarantee\b`),
	regexp.MustCompile(`(?i)\bsubscribe (now|today)\b`),
	regexp.MustCompile(`(?i)\bspecial offer\b`),
	regexp.MustCompile(`(?i)\border (now|today)\b`),
	regexp.MustCompile(`(?i)\bdon'?t miss (out|this)\b`),
}

// whitespaceRun matches any run of whitespace, newlines included.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Cleaner removes non-content nodes from HTML according to its Options.
type Cleaner struct {
	opts Options
}

// New creates a Cleaner with the given options.
func New(opts Options) *Cleaner {
	return &Cleaner{opts: opts}
}

// Clean applies the enabled categories to htmlStr and returns the
// cleaned document. Malformed HTML is tolerated: the permissive parser
// repairs what it can and cleaning proceeds on the result.
func (c *Cleaner) Clean(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	if c.opts.RemoveScripts {
		doc.Find("script, noscript").Remove()
	}

	if c.opts.RemoveStyles {
		doc.Find("style").Remove()
		doc.Find("[style]").RemoveAttr("style")
	}

	if c.opts.RemoveComments {
		for _, root := range doc.Nodes {
			removeComments(root)
		}
	}

	if c.opts.RemoveTrackers {
		doc.Find(trackerSelector()).Remove()
	}

	if c.opts.RemoveAds {
		doc.Find(adSelector()).Remove()
	}

	return renderDocument(doc)
}

// RemoveBoilerplate strips page chrome: headers, navigation, footers,
// sidebars, and elements with the corresponding ARIA roles.
func RemoveBoilerplate(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	stripBoilerplate(doc.Selection)

	return renderDocument(doc)
}

// boilerplateSelector matches structural chrome elements.
const boilerplateSelector = `header, nav, footer, aside,
	[role="banner"], [role="navigation"], [role="contentinfo"], [role="complementary"]`

// stripBoilerplate removes chrome elements within sel.
func stripBoilerplate(sel *goquery.Selection) {
	sel.Find(boilerplateSelector).Remove()
}

// mainContentSelectors is the priority list tried by ExtractMainContent.
// Semantic containers first, then the common content class/id names.
var mainContentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#content",
	"#main-content",
	".main-content",
	"#main",
	".content",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
}

// mainContentMinChars is the minimum text length for a candidate
// container to be accepted as main content.
const mainContentMinChars = 100

// ExtractMainContent returns the HTML of the page's main content
// container. It tries the candidate selectors in priority order and
// accepts the first whose text exceeds the minimum length; if none
// qualifies it falls back to the boilerplate-stripped body.
func ExtractMainContent(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, selector := range mainContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if len(NormalizeWhitespace(sel.Text())) > mainContentMinChars {
			return goquery.OuterHtml(sel)
		}
	}

	// Fallback: body with chrome stripped.
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return renderDocument(doc)
	}
	stripBoilerplate(body)
	return body.Html()
}

// spamCandidateSelector lists the element kinds RemoveSpam inspects.
const spamCandidateSelector = "p, span, li, td, aside, section, div"

// RemoveSpam drops nodes whose text matches promotional-language
// patterns. Only the innermost matching container is removed, so a
// spammy paragraph does not take the whole page with it.
func RemoveSpam(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	var doomed []*goquery.Selection
	doc.Find(spamCandidateSelector).Each(func(_ int, sel *goquery.Selection) {
		if !isSpamText(sel.Text()) {
			return
		}
		// Skip outer containers; a matching descendant will be caught
		// by its own iteration.
		inner := false
		sel.Find(spamCandidateSelector).EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if isSpamText(child.Text()) {
				inner = true
				return false
			}
			return true
		})
		if !inner {
			doomed = append(doomed, sel)
		}
	})

	for _, sel := range doomed {
		sel.Remove()
	}

	return renderDocument(doc)
}

// isSpamText reports whether text matches any promotional pattern.
func isSpamText(text string) bool {
	for _, re := range spamPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// NormalizeWhitespace collapses every whitespace run to a single space
// and trims the result.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// trackerSelector builds the combined selector for tracker embeds.
func trackerSelector() string {
	var parts []string
	for _, pattern := range trackerPatterns {
		parts = append(parts,
			fmt.Sprintf(`script[src*=%q]`, pattern),
			fmt.Sprintf(`img[src*=%q]`, pattern),
			fmt.Sprintf(`iframe[src*=%q]`, pattern),
		)
	}
	return strings.Join(parts, ", ")
}

// adSelector builds the combined selector for ad containers.
func adSelector() string {
	var parts []string
	for _, pattern := range adPatterns {
		parts = append(parts,
			fmt.Sprintf(`[class*=%q]`, pattern),
			fmt.Sprintf(`[id*=%q]`, pattern),
		)
	}
	return strings.Join(parts, ", ")
}

// removeComments removes comment nodes from the subtree rooted at n.
func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

// renderDocument serializes the document back to HTML.
func renderDocument(doc *goquery.Document) (string, error) {
	var buf bytes.Buffer
	for _, n := range doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("rendering HTML: %w", err)
		}
	}
	return buf.String(), nil
}
