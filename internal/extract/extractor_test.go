package extract

import (
	"strings"
	"testing"

	"github.com/webharvest/webharvest/internal/model"
)

// TestResolveTitle tests the title priority chain.
func TestResolveTitle(t *testing.T) {
	t.Parallel()

	t.Run("title tag wins", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><head>
			<title>From Title</title>
			<meta property="og:title" content="From OG">
		</head><body><h1>From H1</h1></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if content.Title != "From Title" {
			t.Errorf("title = %q, want From Title", content.Title)
		}
	})

	t.Run("og:title is second", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><head>
			<meta property="og:title" content="From OG">
		</head><body><h1>From H1</h1></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if content.Title != "From OG" {
			t.Errorf("title = %q, want From OG", content.Title)
		}
	})

	t.Run("first h1 is last resort", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body><h1>From H1</h1><h1>Second</h1></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if content.Title != "From H1" {
			t.Errorf("title = %q, want From H1", content.Title)
		}
	})

	t.Run("absent everywhere means empty", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body><p>no title anywhere here</p></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if content.Title != "" {
			t.Errorf("title = %q, want empty", content.Title)
		}
	})
}

// TestExtractHeadingsAndParagraphs tests per-level collection and the
// paragraph length filter.
func TestExtractHeadingsAndParagraphs(t *testing.T) {
	t.Parallel()

	content, err := Extract(`<html><body>
		<h1>One</h1><h2>Two A</h2><h2>Two B</h2><h3>Three</h3>
		<p>short</p>
		<p>This paragraph is long enough to keep around.</p>
	</body></html>`, "https://a.com")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(content.Headings.H1) != 1 || content.Headings.H1[0] != "One" {
		t.Errorf("h1 = %v", content.Headings.H1)
	}
	if len(content.Headings.H2) != 2 {
		t.Errorf("h2 = %v, want 2 entries", content.Headings.H2)
	}
	if len(content.Headings.H3) != 1 {
		t.Errorf("h3 = %v, want 1 entry", content.Headings.H3)
	}
	if len(content.Paragraphs) != 1 || !strings.HasPrefix(content.Paragraphs[0], "This paragraph") {
		t.Errorf("paragraphs = %v, want only the long one", content.Paragraphs)
	}
}

// TestParagraphLengthCountsRunes tests that the length filter measures
// characters, not bytes, so multi-byte scripts are filtered the same
// way as ASCII.
func TestParagraphLengthCountsRunes(t *testing.T) {
	t.Parallel()

	// 7 runes but 21 bytes: under the 20-character minimum.
	short := "短い段落です。"
	// 20 runes: exactly at the minimum.
	long := "これは二十文字ちょうどの長さの段落です。"

	content, err := Extract(
		"<html><body><p>"+short+"</p><p>"+long+"</p></body></html>",
		"https://a.com")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(content.Paragraphs) != 1 || content.Paragraphs[0] != long {
		t.Errorf("paragraphs = %v, want only the twenty-rune one", content.Paragraphs)
	}
}

// TestExtractLinks tests URL resolution and internal/external split.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("relative href resolves against base", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body><a href="/x">X</a></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len(content.Links) != 1 {
			t.Fatalf("links = %v, want 1", content.Links)
		}
		link := content.Links[0]
		if link.Href != "https://a.com/x" {
			t.Errorf("href = %q, want https://a.com/x", link.Href)
		}
		if !link.IsInternal || link.IsExternal {
			t.Errorf("link should be internal: %+v", link)
		}
	})

	t.Run("cross-host link is external", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body><a href="https://b.com/y" title="other">Y</a></body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		link := content.Links[0]
		if link.IsInternal || !link.IsExternal {
			t.Errorf("link should be external: %+v", link)
		}
		if link.Title != "other" {
			t.Errorf("title = %q, want other", link.Title)
		}
	})

	t.Run("non-fetchable and malformed hrefs are dropped", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:a@b.com">mail</a>
			<a href="tel:+123">tel</a>
			<a href="#">anchor</a>
			<a href="http://%zz">broken</a>
			<a href="/ok">ok</a>
		</body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len(content.Links) != 1 || content.Links[0].Href != "https://a.com/ok" {
			t.Errorf("links = %+v, want only /ok", content.Links)
		}
	})
}

// TestExtractImages tests image resolution and defensive dimension parsing.
func TestExtractImages(t *testing.T) {
	t.Parallel()

	content, err := Extract(`<html><body>
		<img src="/logo.png" alt="Logo" width="120" height="60">
		<img src="pics/photo.jpg" width="wide">
		<img src="https://cdn.b.com/i.gif">
	</body></html>`, "https://a.com/page/")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(content.Images) != 3 {
		t.Fatalf("images = %+v, want 3", content.Images)
	}

	first := content.Images[0]
	if first.Src != "https://a.com/logo.png" {
		t.Errorf("src = %q", first.Src)
	}
	if first.Width == nil || *first.Width != 120 || first.Height == nil || *first.Height != 60 {
		t.Errorf("dimensions not parsed: %+v", first)
	}

	second := content.Images[1]
	if second.Src != "https://a.com/page/pics/photo.jpg" {
		t.Errorf("relative src = %q", second.Src)
	}
	if second.Width != nil {
		t.Errorf("non-numeric width should be nil, got %v", *second.Width)
	}
	if second.Height != nil {
		t.Errorf("absent height should be nil")
	}
}

// TestExtractMeta tests metadata collection.
func TestExtractMeta(t *testing.T) {
	t.Parallel()

	content, err := Extract(`<html><head>
		<meta name="description" content="A page">
		<meta name="keywords" content="a,b,c">
		<meta name="author" content="Someone">
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG Desc">
		<meta property="og:image" content="https://a.com/og.png">
		<meta name="twitter:card" content="summary">
		<link rel="canonical" href="/canonical">
	</head><body></body></html>`, "https://a.com")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	m := content.Meta
	if m.Description != "A page" || m.Keywords != "a,b,c" || m.Author != "Someone" {
		t.Errorf("basic meta wrong: %+v", m)
	}
	if m.OGTitle != "OG Title" || m.OGDescription != "OG Desc" || m.OGImage != "https://a.com/og.png" {
		t.Errorf("og meta wrong: %+v", m)
	}
	if m.TwitterCard != "summary" {
		t.Errorf("twitter card = %q", m.TwitterCard)
	}
	if m.Canonical != "https://a.com/canonical" {
		t.Errorf("canonical = %q", m.Canonical)
	}
}

// TestExtractWithOptions tests per-collection toggles.
func TestExtractWithOptions(t *testing.T) {
	t.Parallel()

	content, err := ExtractWithOptions(`<html><head>
		<meta name="description" content="A page">
	</head><body><a href="/x">X</a><img src="/i.png"></body></html>`,
		"https://a.com", Options{Links: true})
	if err != nil {
		t.Fatalf("ExtractWithOptions failed: %v", err)
	}

	if len(content.Links) != 1 {
		t.Errorf("links should be populated")
	}
	if len(content.Images) != 0 {
		t.Errorf("images should be skipped")
	}
	if content.Meta.Description != "" {
		t.Errorf("meta should be skipped")
	}
}

// TestExtractSections tests the stack-machine section builder.
func TestExtractSections(t *testing.T) {
	t.Parallel()

	t.Run("flat structure splits on each heading", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body>
			<h2>First</h2><p>alpha text</p>
			<h2>Second</h2><p>beta text</p>
		</body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		if len(content.Sections) != 2 {
			t.Fatalf("sections = %+v, want 2", content.Sections)
		}
		if content.Sections[0].Heading != "First" || !strings.Contains(content.Sections[0].Content, "alpha text") {
			t.Errorf("first section wrong: %+v", content.Sections[0])
		}
		if strings.Contains(content.Sections[0].Content, "beta") {
			t.Errorf("first section leaked into second: %+v", content.Sections[0])
		}
		if content.Sections[1].Heading != "Second" || content.Sections[1].Level != 2 {
			t.Errorf("second section wrong: %+v", content.Sections[1])
		}
	})

	t.Run("nested headings keep subordinate text in the parent", func(t *testing.T) {
		t.Parallel()

		content, err := Extract(`<html><body>
			<h1>Chapter</h1><p>chapter intro</p>
			<h2>Part A</h2><p>part a body</p>
			<h2>Part B</h2><p>part b body</p>
			<h1>Next Chapter</h1><p>next body</p>
		</body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		if len(content.Sections) != 4 {
			t.Fatalf("sections = %+v, want 4", content.Sections)
		}

		chapter := content.Sections[0]
		if chapter.Heading != "Chapter" || chapter.Level != 1 {
			t.Fatalf("first section wrong: %+v", chapter)
		}
		// The h1 section spans its h2 children.
		for _, want := range []string{"chapter intro", "part a body", "part b body"} {
			if !strings.Contains(chapter.Content, want) {
				t.Errorf("chapter missing %q: %q", want, chapter.Content)
			}
		}
		if strings.Contains(chapter.Content, "next body") {
			t.Errorf("chapter leaked past next h1: %q", chapter.Content)
		}

		partA := content.Sections[1]
		if partA.Heading != "Part A" || strings.Contains(partA.Content, "part b") {
			t.Errorf("part A wrong: %+v", partA)
		}
	})

	t.Run("out-of-order headings close correctly", func(t *testing.T) {
		t.Parallel()

		// h3 before h1: the h1 must close the h3, not nest under it.
		content, err := Extract(`<html><body>
			<h3>Detail</h3><p>detail body</p>
			<h1>Big</h1><p>big body</p>
		</body></html>`, "https://a.com")
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		if len(content.Sections) != 2 {
			t.Fatalf("sections = %+v, want 2", content.Sections)
		}
		if strings.Contains(content.Sections[0].Content, "big body") {
			t.Errorf("h3 section swallowed the h1 body: %+v", content.Sections[0])
		}
		if content.Sections[1].Heading != "Big" || content.Sections[1].Level != 1 {
			t.Errorf("h1 section wrong: %+v", content.Sections[1])
		}
	})
}

// TestHTMLToText tests the plain-text projection.
func TestHTMLToText(t *testing.T) {
	t.Parallel()

	text, err := HTMLToText(`<html><head><style>p{}</style><script>x()</script></head>
		<body><p>Hello   there</p><iframe src="x"></iframe><noscript>nope</noscript><p>World</p></body></html>`)
	if err != nil {
		t.Fatalf("HTMLToText failed: %v", err)
	}

	if text != "Hello there World" {
		t.Errorf("text = %q, want %q", text, "Hello there World")
	}
}

// TestClassify tests the advisory page type heuristic.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want model.PageType
	}{
		{
			name: "article element",
			html: `<html><body><article><p>story</p></article></body></html>`,
			want: model.PageTypeArticle,
		},
		{
			name: "product microdata",
			html: `<html><body><div itemtype="https://schema.org/Product">thing</div></body></html>`,
			want: model.PageTypeProduct,
		},
		{
			name: "many code blocks",
			html: `<html><body>` + strings.Repeat("<pre><code>x</code></pre>", 6) + `</body></html>`,
			want: model.PageTypeDocumentation,
		},
		{
			name: "single h1 with nav",
			html: `<html><body><nav>menu</nav><h1>Welcome</h1></body></html>`,
			want: model.PageTypeHomepage,
		},
		{
			name: "nothing special",
			html: `<html><body><p>plain</p></body></html>`,
			want: model.PageTypeGeneric,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyHTML(tt.html); got != tt.want {
				t.Errorf("ClassifyHTML = %q, want %q", got, tt.want)
			}
		})
	}
}
