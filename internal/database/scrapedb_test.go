package database

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *ScrapeDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return db
}

func TestOpenRequiresExistingDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := Options{CreateIfNotExists: false}
	if _, err := Open(dir, opts); err == nil {
		t.Error("expected error opening missing database without create")
	}

	// After creating, reopening without create succeeds.
	created, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Open with create failed: %v", err)
	}
	if err := created.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStoreAndGetPage(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	record := &PageRecord{
		URL:     "https://example.com/page",
		Content: "<html><body>stored content</body></html>",
		Format:  "html",
		Metadata: map[string]string{
			"title":  "Example",
			"status": "200",
		},
	}

	id, err := db.StorePage(ctx, record)
	if err != nil {
		t.Fatalf("StorePage failed: %v", err)
	}
	if id == 0 {
		t.Fatal("StorePage returned zero id")
	}

	t.Run("by URL", func(t *testing.T) {
		got, err := db.GetPageByURL(ctx, record.URL)
		if err != nil {
			t.Fatalf("GetPageByURL failed: %v", err)
		}
		if got == nil {
			t.Fatal("page not found")
		}
		if got.ID != id || got.Content != record.Content || got.Format != "html" {
			t.Errorf("got %+v", got)
		}
		if got.Metadata["title"] != "Example" {
			t.Errorf("metadata = %v", got.Metadata)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Errorf("timestamps not set: %+v", got)
		}
	})

	t.Run("by ID", func(t *testing.T) {
		got, err := db.GetPageByID(ctx, id)
		if err != nil {
			t.Fatalf("GetPageByID failed: %v", err)
		}
		if got == nil || got.URL != record.URL {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("missing URL yields nil", func(t *testing.T) {
		got, err := db.GetPageByURL(ctx, "https://example.com/absent")
		if err != nil {
			t.Fatalf("GetPageByURL failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("missing ID yields nil", func(t *testing.T) {
		got, err := db.GetPageByID(ctx, 99999)
		if err != nil {
			t.Fatalf("GetPageByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func TestStorePageUpsert(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	first := &PageRecord{URL: "https://example.com/x", Content: "old", Format: "html"}
	id1, err := db.StorePage(ctx, first)
	if err != nil {
		t.Fatalf("first store failed: %v", err)
	}

	before, err := db.GetPageByURL(ctx, first.URL)
	if err != nil {
		t.Fatalf("GetPageByURL failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second := &PageRecord{URL: "https://example.com/x", Content: "new", Format: "text"}
	id2, err := db.StorePage(ctx, second)
	if err != nil {
		t.Fatalf("second store failed: %v", err)
	}

	if id1 != id2 {
		t.Errorf("upsert changed row id: %d -> %d", id1, id2)
	}

	count, err := db.CountPages(ctx)
	if err != nil {
		t.Fatalf("CountPages failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after upsert", count)
	}

	after, err := db.GetPageByURL(ctx, first.URL)
	if err != nil {
		t.Fatalf("GetPageByURL failed: %v", err)
	}
	if after.Content != "new" || after.Format != "text" {
		t.Errorf("content not replaced: %+v", after)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("UpdatedAt not bumped: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestDeletePage(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.StorePage(ctx, &PageRecord{URL: "https://example.com/a", Content: "a"})
	if err != nil {
		t.Fatalf("StorePage failed: %v", err)
	}
	if _, err := db.StorePage(ctx, &PageRecord{URL: "https://example.com/b", Content: "b"}); err != nil {
		t.Fatalf("StorePage failed: %v", err)
	}

	t.Run("by URL", func(t *testing.T) {
		deleted, err := db.DeletePage(ctx, "https://example.com/b")
		if err != nil {
			t.Fatalf("DeletePage failed: %v", err)
		}
		if !deleted {
			t.Error("expected deletion")
		}
	})

	t.Run("by numeric ID", func(t *testing.T) {
		deleted, err := db.DeletePage(ctx, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("DeletePage failed: %v", err)
		}
		if !deleted {
			t.Error("expected deletion")
		}
	})

	t.Run("absent target", func(t *testing.T) {
		deleted, err := db.DeletePage(ctx, "https://example.com/never")
		if err != nil {
			t.Fatalf("DeletePage failed: %v", err)
		}
		if deleted {
			t.Error("deleted something that was not there")
		}
	})

	count, err := db.CountPages(ctx)
	if err != nil {
		t.Fatalf("CountPages failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestSearchPages(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	pages := []*PageRecord{
		{URL: "https://example.com/go", Content: "a page about golang concurrency"},
		{URL: "https://example.com/py", Content: "a page about python"},
		{URL: "https://golang.example.com/", Content: "nothing relevant in the body"},
	}
	for _, p := range pages {
		if _, err := db.StorePage(ctx, p); err != nil {
			t.Fatalf("StorePage failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("matches content and URL", func(t *testing.T) {
		results, err := db.SearchPages(ctx, "golang", 0)
		if err != nil {
			t.Fatalf("SearchPages failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("results = %d, want 2", len(results))
		}
		// Most recently updated first.
		if results[0].URL != "https://golang.example.com/" {
			t.Errorf("order wrong: %q first", results[0].URL)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		results, err := db.SearchPages(ctx, "rustlang", 0)
		if err != nil {
			t.Fatalf("SearchPages failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("results = %+v, want none", results)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		results, err := db.SearchPages(ctx, "page", 1)
		if err != nil {
			t.Fatalf("SearchPages failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("results = %d, want 1", len(results))
		}
	})
}

func TestListAndCountPages(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		url := "https://example.com/p" + strconv.Itoa(i)
		if _, err := db.StorePage(ctx, &PageRecord{URL: url, Content: "c"}); err != nil {
			t.Fatalf("StorePage failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	count, err := db.CountPages(ctx)
	if err != nil {
		t.Fatalf("CountPages failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}

	all, err := db.ListPages(ctx, 0)
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("listed %d, want 5", len(all))
	}
	// Most recently stored first.
	if all[0].URL != "https://example.com/p4" {
		t.Errorf("order wrong: %q first", all[0].URL)
	}

	limited, err := db.ListPages(ctx, 2)
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("listed %d, want 2", len(limited))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{"2026-01-02T15:04:05.000000000Z", false},
		{"2026-01-02T15:04:05Z", false},
		{"2026-01-02 15:04:05", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		got := parseTimestamp(tt.in)
		if got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
		}
	}
}
