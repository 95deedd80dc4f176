// Package search drives a marketplace's own search box and returns the
// rendered results page.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/allendavis-developer/cg-request/internal/browser"
	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/sites"
)

// ErrNavigation marks failures that prevented reaching the results page at
// all, as opposed to tolerated settle timeouts after the search was fired.
var ErrNavigation = errors.New("search navigation failed")

// Result is the rendered state of the search-results page. URL and Title
// are re-read after the interaction because client-side search rewrites
// both without a full navigation.
type Result struct {
	Term  string
	URL   string
	Title string
	HTML  string

	// Steps records the interaction trace in order.
	Steps []string
}

// Options tunes the search interaction.
type Options struct {
	// SuggestionDelay is the fixed pause after typing, giving the page's
	// autocomplete time to populate.
	SuggestionDelay time.Duration

	// SettleTimeout bounds the wait for results to render after the search
	// is fired. Running out of it is tolerated.
	SettleTimeout time.Duration
}

// DefaultOptions returns the interaction timings used when none are given.
func DefaultOptions() Options {
	return Options{
		SuggestionDelay: 500 * time.Millisecond,
		SettleTimeout:   10 * time.Second,
	}
}

// Orchestrator runs searches against configured sites.
type Orchestrator struct {
	engine *browser.Engine
	opts   Options
}

// NewOrchestrator creates an orchestrator over the given browser engine.
func NewOrchestrator(engine *browser.Engine, opts Options) *Orchestrator {
	if opts.SuggestionDelay == 0 {
		opts.SuggestionDelay = DefaultOptions().SuggestionDelay
	}
	if opts.SettleTimeout == 0 {
		opts.SettleTimeout = DefaultOptions().SettleTimeout
	}
	return &Orchestrator{engine: engine, opts: opts}
}

// Search types the term into the site's search box and returns the rendered
// results page. The page's own search flow is used rather than a results
// URL so that sites whose listings only render client-side still work.
func (o *Orchestrator) Search(ctx context.Context, cfg *sites.SiteConfig, term string) (*Result, error) {
	session, err := o.engine.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer session.Close()

	result := &Result{Term: term}
	step := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		result.Steps = append(result.Steps, msg)
		logger.Debug("search: " + msg)
	}

	step("Navigating to %s...", cfg.BaseURL)
	if err := session.Navigate(ctx, cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	input := cfg.Search.InputSelector
	if err := session.WaitVisible(ctx, input); err != nil {
		return nil, fmt.Errorf("%w: search input %s never appeared: %v", ErrNavigation, input, err)
	}

	step("Typing %q into search field...", term)
	if err := session.Fill(ctx, input, term); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	// Give the autocomplete a moment to populate before looking for it.
	_ = session.Sleep(ctx, o.opts.SuggestionDelay)

	if o.clickSuggestion(ctx, session, cfg.Search.SuggestionSelectors, step) {
		step("Selected search suggestion")
	} else {
		step("No suggestion available, submitting with Enter")
		if err := session.PressEnter(ctx, input); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
		}
	}

	// Results rendering is best-effort from here: a slow page still gets
	// extracted with whatever it managed to render.
	o.waitForResults(ctx, session, cfg)

	if u, err := session.Location(ctx); err == nil {
		result.URL = u
	}
	if t, err := session.Title(ctx); err == nil {
		result.Title = t
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	result.HTML = html

	step("Extracting results...")
	logger.Debug("search: complete", "term", term, "url", result.URL, "html_size", len(html))
	return result, nil
}

// clickSuggestion tries each suggestion selector in order and reports
// whether one was clicked.
func (o *Orchestrator) clickSuggestion(ctx context.Context, session *browser.Session, selectors []string, step func(string, ...any)) bool {
	for _, sel := range selectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := session.Click(clickCtx, sel)
		cancel()
		if err == nil {
			logger.Debug("search: suggestion clicked", "selector", sel)
			return true
		}
	}
	return false
}

// waitForResults waits for the site's card container to appear. A timeout
// is logged, not returned: extraction over a partial page beats failing a
// search that did run.
func (o *Orchestrator) waitForResults(ctx context.Context, session *browser.Session, cfg *sites.SiteConfig) {
	settleCtx, cancel := context.WithTimeout(ctx, o.opts.SettleTimeout)
	defer cancel()

	for _, sel := range cfg.Selectors[sites.FieldCardContainer] {
		if err := session.WaitVisible(settleCtx, sel); err == nil {
			return
		}
		if settleCtx.Err() != nil {
			break
		}
	}
	logger.Warn("search: results never settled, extracting current state")
}

// FetchURL loads an arbitrary page in the browser and returns its rendered
// state. Used for scraping result URLs directly rather than via search.
func (o *Orchestrator) FetchURL(ctx context.Context, pageURL string, waitSelector string) (*Result, error) {
	session, err := o.engine.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer session.Close()

	result := &Result{URL: pageURL}
	if err := session.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	if waitSelector != "" {
		settleCtx, cancel := context.WithTimeout(ctx, o.opts.SettleTimeout)
		if err := session.WaitVisible(settleCtx, waitSelector); err != nil {
			logger.Warn("fetch: wait selector never appeared", "selector", waitSelector)
		}
		cancel()
	}

	if u, err := session.Location(ctx); err == nil {
		result.URL = u
	}
	if t, err := session.Title(ctx); err == nil {
		result.Title = t
	}
	html, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	result.HTML = html
	return result, nil
}

// SearchURL builds the site's direct results URL for a term, or an empty
// string when the site has no URL template.
func SearchURL(cfg *sites.SiteConfig, term string) string {
	if cfg.Search.URLTemplate == "" {
		return ""
	}
	return fmt.Sprintf(cfg.Search.URLTemplate, url.QueryEscape(term))
}
