package pricer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/allendavis-developer/cg-request/internal/refine"
	"github.com/allendavis-developer/cg-request/internal/sites"
)

func TestStart_UnsupportedSite(t *testing.T) {
	p := New(Options{})
	defer func() { _ = p.Close() }()

	_, err := p.Start(context.Background(), Request{
		Text:    "ps5",
		SiteURL: "https://unsupported.example.org",
	})
	if !errors.Is(err, ErrNoSiteConfig) {
		t.Fatalf("expected ErrNoSiteConfig, got %v", err)
	}
}

func TestScrape_UnsupportedSite(t *testing.T) {
	p := New(Options{})
	defer func() { _ = p.Close() }()

	_, err := p.Scrape(context.Background(), "https://unsupported.example.org")
	if !errors.Is(err, ErrNoSiteConfig) {
		t.Fatalf("expected ErrNoSiteConfig, got %v", err)
	}
}

func TestScrapeMultiple_CollectsErrors(t *testing.T) {
	p := New(Options{})
	defer func() { _ = p.Close() }()

	pages := p.ScrapeMultiple(context.Background(), []string{
		"https://unsupported.example.org",
		"https://also-unsupported.example.org",
	})
	if len(pages) != 2 {
		t.Fatalf("expected a page entry per url, got %d", len(pages))
	}
	for _, page := range pages {
		if page.Error == "" {
			t.Errorf("expected error entry for %s", page.URL)
		}
	}
}

func TestResult_EmptySearchIsDistinctNoMatch(t *testing.T) {
	s := &Session{
		RequestText: "ps5",
		Term:        "ps5",
		Site:        &sites.SiteConfig{Name: "webuy"},
		state:       &refine.State{Complete: true},
	}

	r := s.Result()
	if r.Outcome != refine.OutcomeNoMatch {
		t.Fatalf("expected no_match for an empty extraction, got %s", r.Outcome)
	}
	if r.Listings != 0 {
		t.Errorf("expected zero listings, got %d", r.Listings)
	}
	if r.Price != "" {
		t.Errorf("no price may be reported, got %q", r.Price)
	}
}

func TestSites_BuiltinsRegistered(t *testing.T) {
	p := New(Options{})
	defer func() { _ = p.Close() }()

	if cfg := p.Sites().Resolve("https://uk.webuy.com"); cfg == nil {
		t.Fatal("expected built-in site configs to be registered")
	}
}

func TestSites_LoadFileExtendsResolution(t *testing.T) {
	yaml := `- name: example
  domains: [shop.example.org]
  baseUrl: https://shop.example.org
  selectors:
    cardContainer: [".card"]
    title: [".title"]
  search:
    inputSelector: "#search"
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(Options{})
	defer func() { _ = p.Close() }()

	if cfg := p.Sites().Resolve("https://shop.example.org"); cfg != nil {
		t.Fatal("example site must not resolve before loading")
	}
	if err := p.Sites().LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg := p.Sites().Resolve("https://shop.example.org"); cfg == nil {
		t.Fatal("loaded site config not resolvable")
	}
}
