package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webharvest/webharvest/internal/model"
)

// minDocCodeBlocks is how many code blocks suggest documentation.
const minDocCodeBlocks = 5

// Classify assigns an advisory page type from structural signals.
// The classification never changes extraction behavior; it is metadata
// for downstream consumers. Signals are checked from most to least
// specific: article, product, documentation, homepage, generic.
func Classify(doc *goquery.Document) model.PageType {
	if doc.Find("article").Length() > 0 ||
		doc.Find(`[itemtype*="schema.org/Article"]`).Length() > 0 {
		return model.PageTypeArticle
	}

	if doc.Find(`[itemtype*="schema.org/Product"]`).Length() > 0 ||
		doc.Find(".product, #product, .product-page, .product-detail").Length() > 0 {
		return model.PageTypeProduct
	}

	if doc.Find("pre code").Length() >= minDocCodeBlocks ||
		doc.Find(".documentation, .docs, #docs, .api-docs").Length() > 0 {
		return model.PageTypeDocumentation
	}

	if doc.Find("h1").Length() == 1 && doc.Find("nav").Length() > 0 {
		return model.PageTypeHomepage
	}

	return model.PageTypeGeneric
}

// ClassifyHTML parses htmlStr and classifies it. Unparseable input is
// generic.
func ClassifyHTML(htmlStr string) model.PageType {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return model.PageTypeGeneric
	}
	return Classify(doc)
}
