package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/sites"
)

// StaticSearcher fetches a site's results page over plain HTTP using its
// search URL template. Sites that render listings server-side do not need
// a browser at all.
type StaticSearcher struct {
	UserAgent string
	Timeout   time.Duration
}

// NewStaticSearcher creates a static searcher with default settings.
func NewStaticSearcher() *StaticSearcher {
	return &StaticSearcher{
		UserAgent: browserUserAgent,
		Timeout:   30 * time.Second,
	}
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Search fetches the results page for the term. It fails when the site has
// no URL template; those sites require the browser flow.
func (s *StaticSearcher) Search(cfg *sites.SiteConfig, term string) (*Result, error) {
	target := SearchURL(cfg, term)
	if target == "" {
		return nil, fmt.Errorf("site %s has no search url template", cfg.Name)
	}

	result := &Result{
		Term:  term,
		URL:   target,
		Steps: []string{fmt.Sprintf("Fetching %s...", target)},
	}

	c := colly.NewCollector(
		colly.UserAgent(s.UserAgent),
	)
	c.SetRequestTimeout(s.Timeout)

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		result.HTML = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, fetchErr)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML)); err == nil {
		result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	result.Steps = append(result.Steps, "Extracting results...")
	logger.Debug("search: static fetch complete", "term", term, "url", target, "html_size", len(result.HTML))
	return result, nil
}
