// Package browser manages a shared headless Chrome instance and hands out
// isolated sessions over it.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/allendavis-developer/cg-request/internal/logger"
)

// Config controls how the underlying browser is launched.
type Config struct {
	UserAgent string
	Headless  bool
	Timeout   time.Duration
}

// DefaultConfig returns the launch options used when none are given.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Headless:  true,
		Timeout:   30 * time.Second,
	}
}

// Engine owns the browser allocator. The allocator is created lazily on the
// first session so that constructing an Engine never launches anything.
type Engine struct {
	config Config

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	closed      bool
}

// NewEngine creates an engine. No browser process is started yet.
func NewEngine(cfg Config) *Engine {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Engine{config: cfg}
}

// allocator returns the shared allocator context, creating it on first use.
func (e *Engine) allocator() (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("browser engine is closed")
	}
	if e.allocCtx != nil {
		return e.allocCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(e.config.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	logger.Debug("browser: launching", "user_agent", e.config.UserAgent, "headless", e.config.Headless)
	e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return e.allocCtx, nil
}

// NewSession opens an isolated browser session. Sessions share the browser
// process but never share page state.
func (e *Engine) NewSession() (*Session, error) {
	allocCtx, err := e.allocator()
	if err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	return &Session{
		ctx:     ctx,
		cancel:  cancel,
		timeout: e.config.Timeout,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once and safe
// to call on an engine that never launched.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCtx = nil
		e.allocCancel = nil
	}
	logger.Debug("browser: closed")
	return nil
}

// Session is one isolated page context. It is not safe for concurrent use.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	once    sync.Once
}

// run executes actions under the caller's deadline, falling back to the
// engine's configured timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	} else if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the given URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	logger.Debug("browser: navigate", "url", url)
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// Fill sets an input's value and fires the input and change events so the
// page's own listeners react as if the user had typed.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.run(ctx, chromedp.SetValue(selector, value)); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if err := s.DispatchEvent(ctx, selector, "input"); err != nil {
		return err
	}
	return s.DispatchEvent(ctx, selector, "change")
}

// DispatchEvent fires a bubbling DOM event on the first element matching the
// selector.
func (s *Session) DispatchEvent(ctx context.Context, selector, event string) error {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (el) { el.dispatchEvent(new Event(%q, { bubbles: true })); } })()`,
		selector, event)
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("dispatch %s on %s: %w", event, selector, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// PressEnter sends the Enter key to the element matching the selector.
func (s *Session) PressEnter(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.SendKeys(selector, kb.Enter)); err != nil {
		return fmt.Errorf("press enter on %s: %w", selector, err)
	}
	return nil
}

// Sleep pauses for the given duration within the session.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.run(ctx, chromedp.Sleep(d))
}

// Location returns the page's current URL. Pages rewrite their location
// during client-side search, so this is re-read after interactions rather
// than assumed from the navigation target.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

// Title returns the page's current title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

// HTML returns the page's full rendered markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Evaluate runs a script in the page and decodes the result into out. Pass
// nil to discard the result.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Screenshot captures the full page as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close releases the session's page context. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
	})
}
