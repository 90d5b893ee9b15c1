package scrape

import (
	"context"
	"strings"

	"github.com/webharvest/webharvest/internal/clean"
	"github.com/webharvest/webharvest/internal/extract"
	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/guard"
	"github.com/webharvest/webharvest/internal/model"
)

// ValidateStep rejects URLs that must never be fetched: malformed
// URLs, non-HTTP schemes, and private or loopback hosts.
type ValidateStep struct {
	// RequireHTTPS additionally rejects plain http URLs.
	RequireHTTPS bool

	// AllowLoopback permits loopback hosts, for self-hosted targets.
	AllowLoopback bool
}

// Name returns the step name.
func (s *ValidateStep) Name() string { return "validate" }

// Do validates the request URL.
func (s *ValidateStep) Do(_ context.Context, ex *Exchange) error {
	return guard.ValidateWithOptions(ex.Request.URL, guard.Options{
		RequireHTTPS:  s.RequireHTTPS,
		AllowLoopback: s.AllowLoopback,
	})
}

// RobotsStep rejects URLs disallowed by the target host's robots.txt.
// It consults the fetch client's shared ruleset cache.
type RobotsStep struct {
	Client *fetch.Client
}

// Name returns the step name.
func (s *RobotsStep) Name() string { return "robots" }

// Do checks robots.txt for the request URL.
func (s *RobotsStep) Do(ctx context.Context, ex *Exchange) error {
	if !ex.Request.RespectRobots {
		return nil
	}
	if !s.Client.CheckRobots(ctx, ex.Request.URL) {
		return &fetch.RobotsDisallowedError{
			URL:       ex.Request.URL,
			UserAgent: s.Client.UserAgent(),
		}
	}
	return nil
}

// FetchStep retrieves the page and seeds the exchange's page model
// with the raw fetch outcome.
type FetchStep struct {
	Client *fetch.Client
}

// Name returns the step name.
func (s *FetchStep) Name() string { return "fetch" }

// Do fetches the request URL.
func (s *FetchStep) Do(ctx context.Context, ex *Exchange) error {
	res, err := s.Client.Fetch(ctx, ex.Request.URL)
	if err != nil {
		return err
	}

	ex.Result = res
	ex.Page = &model.ScrapedPage{
		URL:    res.URL,
		Status: res.Status,
		Metadata: model.PageMetadata{
			ScrapedAt:   res.FetchedAt,
			ContentType: res.ContentType,
			Charset:     res.Charset,
			Size:        res.Size,
		},
	}
	return nil
}

// CleanStep attaches the cleaned HTML and plain-text projections.
// Non-HTML content passes through untouched.
type CleanStep struct {
	Cleaner *clean.Cleaner
}

// Name returns the step name.
func (s *CleanStep) Name() string { return "clean" }

// Do cleans the fetched document.
func (s *CleanStep) Do(_ context.Context, ex *Exchange) error {
	if ex.Result == nil || ex.Page == nil {
		return nil
	}
	if !strings.Contains(ex.Result.ContentType, "html") {
		return nil
	}

	cleaned, err := s.Cleaner.Clean(ex.Result.Data)
	if err != nil {
		// Cleaning is best-effort; the raw document still serves.
		cleaned = ex.Result.Data
	}
	ex.Page.CleanedContent = cleaned

	text, err := extract.HTMLToText(cleaned)
	if err == nil {
		ex.Page.ExtractedText = text
	}
	return nil
}

// ExtractStep attaches the structured content model and resolves the
// page title. Non-HTML content passes through untouched.
type ExtractStep struct{}

// Name returns the step name.
func (s *ExtractStep) Name() string { return "extract" }

// Do extracts structured content from the fetched document.
func (s *ExtractStep) Do(_ context.Context, ex *Exchange) error {
	if ex.Result == nil || ex.Page == nil {
		return nil
	}
	if !strings.Contains(ex.Result.ContentType, "html") {
		return nil
	}

	structured, err := extract.Extract(ex.Result.Data, ex.Page.URL)
	if err != nil {
		return err
	}
	ex.Page.Structured = structured
	ex.Page.Title = structured.Title
	return nil
}
