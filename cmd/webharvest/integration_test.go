package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webharvest/webharvest/internal/model"
)

const integrationPage = `<!DOCTYPE html>
<html>
<head>
  <title>Integration Home</title>
  <script>console.log("tracking");</script>
</head>
<body>
  <h1>Integration Home</h1>
  <p>This paragraph is comfortably long enough to survive extraction filters.</p>
  <a href="/about">About</a>
  <a href="https://elsewhere.example/out">Elsewhere</a>
</body>
</html>`

// newIntegrationServer serves a tiny two-page site with no robots
// restrictions.
func newIntegrationServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, integrationPage)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>About</title></head><body><h1>About</h1><p>A page about this little integration site.</p></body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestScrapeCmdEndToEnd(t *testing.T) {
	server := newIntegrationServer(t)

	t.Run("text mode to file", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "page.txt")

		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"scrape", "--allow-loopback", "--mode", "text",
			"-o", outPath, server.URL,
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		out := string(content)
		if !strings.Contains(out, "Integration Home") {
			t.Errorf("output missing title:\n%s", out)
		}
		if strings.Contains(out, "tracking") {
			t.Errorf("script content leaked into text:\n%s", out)
		}
	})

	t.Run("structured mode as JSON", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "page.json")

		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"scrape", "--allow-loopback", "--mode", "structured",
			"--json", "-o", outPath, server.URL,
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}

		var page model.ScrapedPage
		if err := json.Unmarshal(data, &page); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if page.Title != "Integration Home" {
			t.Errorf("title = %q", page.Title)
		}
		if page.Structured == nil || len(page.Structured.Links) != 2 {
			t.Errorf("structured = %+v", page.Structured)
		}
	})

	t.Run("private target is rejected", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"scrape", "--allow-loopback", "http://192.168.1.1/admin",
		})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for private target")
		}
	})
}

func TestScrapeCmdStore(t *testing.T) {
	server := newIntegrationServer(t)
	dbDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "page.txt")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"scrape", "--allow-loopback", "--mode", "text", "--store",
		"--db-dir", dbDir, "-o", outPath, server.URL,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := runDBCmd(t, dbDir, "count")
	if err != nil {
		t.Fatalf("db count failed: %v", err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Errorf("stored page count = %q, want 1", strings.TrimSpace(out))
	}

	listOut, err := runDBCmd(t, dbDir, "list")
	if err != nil {
		t.Fatalf("db list failed: %v", err)
	}
	if !strings.Contains(listOut, "Integration Home") {
		t.Errorf("list output missing title:\n%s", listOut)
	}
}

func TestCrawlCmdEndToEnd(t *testing.T) {
	server := newIntegrationServer(t)
	outPath := filepath.Join(t.TempDir(), "manifest.json")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"crawl", "--allow-loopback", "--delay", "100ms", "--max-pages", "5",
		"--json", "-o", outPath, server.URL,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}

	var manifest model.CrawlManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2 (/ and /about)", manifest.TotalPages)
	}
	if manifest.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, errors: %+v", manifest.ErrorCount, manifest.Errors)
	}
}

func TestLinksCmdEndToEnd(t *testing.T) {
	server := newIntegrationServer(t)

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"links", "--allow-loopback", server.URL})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "/about") {
		t.Errorf("internal link missing:\n%s", out)
	}
	if !strings.Contains(out, "elsewhere.example") {
		t.Errorf("external link missing:\n%s", out)
	}
	if !strings.Contains(out, "2 link(s)") {
		t.Errorf("count missing:\n%s", out)
	}
}

func TestValidateCmdEndToEnd(t *testing.T) {
	t.Run("public URL passes", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"validate", "https://example.com/page"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "valid") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("private URL fails with exit error", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"validate", "http://10.0.0.1/"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for private URL")
		}
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"validate", "--json", "https://example.com/"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var report struct {
			URL   string `json:"url"`
			Valid bool   `json:"valid"`
		}
		if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
		}
		if !report.Valid {
			t.Error("expected valid report")
		}
	})
}
