package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewCrawlManifest(t *testing.T) {
	t.Parallel()

	m := NewCrawlManifest("https://example.com/")

	if m.StartURL != "https://example.com/" {
		t.Errorf("StartURL = %q", m.StartURL)
	}
	if m.Pages == nil || m.Errors == nil {
		t.Error("slices should be initialized, not nil")
	}
	if m.StartedAt.IsZero() {
		t.Error("StartedAt not stamped")
	}
	if !m.CompletedAt.IsZero() {
		t.Error("CompletedAt stamped before Finalize")
	}
}

func TestManifestFinalize(t *testing.T) {
	t.Parallel()

	m := NewCrawlManifest("https://example.com/")
	m.Pages = append(m.Pages,
		&ScrapedPage{URL: "https://example.com/", Status: 200},
		&ScrapedPage{URL: "https://example.com/a", Status: 200},
	)
	m.Errors = append(m.Errors, CrawlError{
		URL:   "https://example.com/broken",
		Error: "unexpected status 500",
	})

	m.Finalize()

	if m.TotalPages != 2 || m.SuccessCount != 2 {
		t.Errorf("counters = %d/%d, want 2/2", m.TotalPages, m.SuccessCount)
	}
	if m.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", m.ErrorCount)
	}
	if m.CompletedAt.Before(m.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
	if m.Duration != m.CompletedAt.Sub(m.StartedAt) {
		t.Error("Duration does not match timestamps")
	}
}

func TestManifestJSONShape(t *testing.T) {
	t.Parallel()

	m := NewCrawlManifest("https://example.com/")
	m.Finalize()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Empty collections serialize as [] so consumers can iterate
	// without nil checks.
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["pages"].([]any); !ok {
		t.Errorf("pages should be an array, got %T", decoded["pages"])
	}
	if _, ok := decoded["errors"]; ok {
		t.Error("empty errors should be omitted")
	}
}

func TestPageIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"application/xhtml+xml", true},
		{"text/plain", false},
		{"application/json", false},
		{"", false},
	}

	for _, tt := range tests {
		page := &ScrapedPage{
			Metadata: PageMetadata{ContentType: tt.contentType},
		}
		if got := page.IsHTML(); got != tt.want {
			t.Errorf("IsHTML() with %q = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestScrapedPageJSONRoundTrip(t *testing.T) {
	t.Parallel()

	page := &ScrapedPage{
		URL:           "https://example.com/article",
		Status:        200,
		Title:         "An Article",
		ExtractedText: "Body text.",
		Structured: &StructuredContent{
			Title:    "An Article",
			PageType: PageTypeArticle,
		},
		Metadata: PageMetadata{
			ScrapedAt:   time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
			ContentType: "text/html",
			Charset:     "utf-8",
			Size:        512,
		},
	}

	data, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ScrapedPage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Title != page.Title || decoded.Status != page.Status {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Structured == nil || decoded.Structured.PageType != PageTypeArticle {
		t.Errorf("structured lost in round trip: %+v", decoded.Structured)
	}
}
