// Package pricer is the top-level price discovery flow: search a supported
// marketplace for an item, extract its listings, and narrow them down to a
// single price through clarification questions.
package pricer

import (
	"context"
	"errors"
	"fmt"

	"github.com/allendavis-developer/cg-request/internal/assist"
	"github.com/allendavis-developer/cg-request/internal/browser"
	"github.com/allendavis-developer/cg-request/internal/extract"
	"github.com/allendavis-developer/cg-request/internal/llm"
	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/refine"
	"github.com/allendavis-developer/cg-request/internal/search"
	"github.com/allendavis-developer/cg-request/internal/sites"
)

// ErrNoSiteConfig means the target URL belongs to no registered site.
var ErrNoSiteConfig = errors.New("no site configuration for url")

// Options configures a Pricer.
type Options struct {
	// Provider backs search term generation and clarification questions.
	Provider llm.Provider

	// Browser is the launch configuration for the headless browser.
	Browser browser.Config

	// Static skips the browser and fetches results pages over plain HTTP
	// using each site's search URL template.
	Static bool

	// Search tunes the browser search interaction.
	Search search.Options
}

// Pricer owns the site registry, the browser, and the assistant. One Pricer
// serves many sessions; Close releases the shared browser.
type Pricer struct {
	sites     *sites.Registry
	engine    *browser.Engine
	orch      *search.Orchestrator
	static    *search.StaticSearcher
	assist    *assist.Client
	refiner   *refine.Engine
	useStatic bool
}

// New creates a pricer with the built-in site configs registered.
func New(opts Options) *Pricer {
	engine := browser.NewEngine(opts.Browser)
	client := assist.NewClient(opts.Provider)
	return &Pricer{
		sites:     sites.NewRegistry(),
		engine:    engine,
		orch:      search.NewOrchestrator(engine, opts.Search),
		static:    search.NewStaticSearcher(),
		assist:    client,
		refiner:   refine.NewEngine(client),
		useStatic: opts.Static,
	}
}

// Sites exposes the site registry for loading additional configs.
func (p *Pricer) Sites() *sites.Registry {
	return p.sites
}

// Close releases the shared browser. Safe to call more than once.
func (p *Pricer) Close() error {
	return p.engine.Close()
}

// Request describes one price discovery run.
type Request struct {
	// Text is the user's free-form item description.
	Text string

	// Context carries extra detail about the item (condition, expectations)
	// that informs search term generation but is not part of the request.
	Context string

	// SiteURL selects the marketplace; it must match a registered site.
	SiteURL string
}

// Session is one price discovery run. It is not safe for concurrent use.
type Session struct {
	pricer *Pricer

	// RequestText is the user's free-form item description.
	RequestText string

	// Term is the search term the site was queried with.
	Term string

	// Site is the marketplace the session ran against.
	Site *sites.SiteConfig

	// Products is the full extraction result before refinement.
	Products []extract.ProductRecord

	// Steps is the ordered interaction trace across the whole session.
	Steps []string

	state    *refine.State
	question *refine.Question
}

// Start runs the search-and-extract phase against the site owning
// req.SiteURL and opens the clarification dialogue. The returned session
// either has a pending question or is already complete.
func (p *Pricer) Start(ctx context.Context, req Request) (*Session, error) {
	cfg := p.sites.Resolve(req.SiteURL)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSiteConfig, req.SiteURL)
	}

	s := &Session{
		pricer:      p,
		RequestText: req.Text,
		Site:        cfg,
	}

	s.step("Generating search term from your request...")
	s.Term = p.assist.GenerateSearchTerm(ctx, req.Text, req.Context)
	s.step("Generated search term: %q", s.Term)

	result, err := p.runSearch(ctx, cfg, s.Term)
	if err != nil {
		return nil, err
	}
	s.Steps = append(s.Steps, result.Steps...)

	s.Products = extract.New(cfg).Extract(result.HTML)
	s.step("Found %d products", len(s.Products))
	logger.Info("session: extracted",
		"site", cfg.Name,
		"term", s.Term,
		"products", len(s.Products))

	state, question, err := p.refiner.Begin(ctx, s.Products, req.Text)
	if err != nil {
		return nil, err
	}
	s.state = state
	s.question = question
	if question != nil {
		s.step("Asking: %s", question.Text)
	}
	return s, nil
}

func (p *Pricer) runSearch(ctx context.Context, cfg *sites.SiteConfig, term string) (*search.Result, error) {
	if p.useStatic {
		return p.static.Search(cfg, term)
	}
	return p.orch.Search(ctx, cfg, term)
}

// Scrape extracts listings from a results page URL without running a
// search or a clarification dialogue.
func (p *Pricer) Scrape(ctx context.Context, pageURL string) ([]extract.ProductRecord, error) {
	cfg := p.sites.Resolve(pageURL)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSiteConfig, pageURL)
	}

	var wait string
	if containers := cfg.Selectors[sites.FieldCardContainer]; len(containers) > 0 {
		wait = containers[0]
	}
	result, err := p.orch.FetchURL(ctx, pageURL, wait)
	if err != nil {
		return nil, err
	}
	return extract.New(cfg).Extract(result.HTML), nil
}

// ScrapeMultiple extracts listings from several result pages in order. A
// page that fails contributes an error entry instead of aborting the rest.
func (p *Pricer) ScrapeMultiple(ctx context.Context, urls []string) []ScrapePage {
	pages := make([]ScrapePage, 0, len(urls))
	for _, u := range urls {
		records, err := p.Scrape(ctx, u)
		page := ScrapePage{URL: u, Products: records}
		if err != nil {
			page.Error = err.Error()
		}
		pages = append(pages, page)
	}
	return pages
}

// ScrapePage is the outcome of scraping one URL.
type ScrapePage struct {
	URL      string                  `json:"url" yaml:"url"`
	Products []extract.ProductRecord `json:"products" yaml:"products"`
	Error    string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s *Session) step(format string, args ...any) {
	s.Steps = append(s.Steps, fmt.Sprintf(format, args...))
}

// Question returns the pending clarification question, or nil when the
// session is complete.
func (s *Session) Question() *refine.Question {
	return s.question
}

// Candidates returns the current filtered candidate set.
func (s *Session) Candidates() []extract.ProductRecord {
	return s.state.Candidates
}

// Done reports whether the dialogue has finished.
func (s *Session) Done() bool {
	return s.state.Complete
}

// Price returns the determined price once the session is complete. It
// returns refine.ErrNoMatch when the answers eliminated every listing.
func (s *Session) Price() (string, error) {
	return s.state.Price()
}

// Answer records the user's answer for the pending question and advances
// the dialogue. An empty value clears a previous answer.
func (s *Session) Answer(ctx context.Context, questionID, value string) error {
	q, err := s.pricer.refiner.Answer(ctx, s.state, questionID, value)
	if err != nil {
		return err
	}
	s.question = q
	if q != nil {
		s.step("Asking: %s", q.Text)
	}
	return nil
}

// Result summarizes a session for output. Valid once Done reports true,
// and also meaningful mid-dialogue as the current standing.
type Result struct {
	RequestText string                  `json:"request" yaml:"request"`
	SearchTerm  string                  `json:"searchTerm" yaml:"searchTerm"`
	Site        string                  `json:"site" yaml:"site"`
	Outcome     refine.Outcome          `json:"outcome" yaml:"outcome"`
	Price       string                  `json:"price,omitempty" yaml:"price,omitempty"`
	Listings    int                     `json:"listings" yaml:"listings"`
	Candidates  []extract.ProductRecord `json:"candidates" yaml:"candidates"`
	Steps       []string                `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Result builds the session summary.
func (s *Session) Result() Result {
	r := Result{
		RequestText: s.RequestText,
		SearchTerm:  s.Term,
		Site:        s.Site.Name,
		Outcome:     s.state.Outcome(),
		Listings:    len(s.Products),
		Candidates:  s.state.Candidates,
		Steps:       s.Steps,
	}
	if price, ok := s.state.ResolvedPrice(); ok {
		r.Price = price
	}
	return r
}
