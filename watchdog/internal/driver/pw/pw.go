// Package pw implements page.Page on playwright-go.
//
// Playwright calls are not context-aware; each method checks ctx before
// dispatching and bounds the call with the configured timeout instead.
package pw

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// Config configures the Playwright session.
type Config struct {
	RemoteURL     string // CDP endpoint; empty launches Chromium
	Headless      bool
	NoSandbox     bool
	Bin           string
	Width, Height int
	Timeout       time.Duration // default per-call timeout
	Install       bool          // download the driver and browser first
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) launchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			fmt.Sprintf("--window-size=%d,%d", c.Width, c.Height),
		},
	}
	if c.NoSandbox {
		opts.ChromiumSandbox = playwright.Bool(false)
		opts.Args = append(opts.Args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if c.Bin != "" {
		opts.ExecutablePath = playwright.String(c.Bin)
	}
	return opts
}

// Page is a Playwright tab.
type Page struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *slog.Logger
}

var _ page.Page = (*Page)(nil)

// Start runs the Playwright driver, opens a browser and one page.
func Start(ctx context.Context, cfg Config) (*Page, error) {
	cfg.defaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{Browsers: []string{"chromium"}}
	if cfg.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("pw: install: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("pw: run: %w", err)
	}

	var browser playwright.Browser
	if cfg.RemoteURL != "" {
		browser, err = pw.Chromium.ConnectOverCDP(cfg.RemoteURL)
	} else {
		browser, err = pw.Chromium.Launch(cfg.launchOptions())
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("pw: launch: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.Width, Height: cfg.Height},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pw: context: %w", err)
	}
	pg, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pw: page: %w", err)
	}
	pg.SetDefaultTimeout(float64(cfg.Timeout.Milliseconds()))

	cfg.Logger.Info("pw: browser started", "remote", cfg.RemoteURL != "", "headless", cfg.Headless)
	return &Page{pw: pw, browser: browser, page: pg, logger: cfg.Logger}, nil
}

// Close closes the browser and stops the driver.
func (p *Page) Close() error {
	err := p.browser.Close()
	if serr := p.pw.Stop(); err == nil {
		err = serr
	}
	return err
}

func (p *Page) eval(ctx context.Context, fn string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, err := page.Invocation(fn, args...)
	if err != nil {
		return nil, err
	}
	return p.page.Evaluate(expr)
}

func (p *Page) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gotoOpts := playwright.PageGotoOptions{WaitUntil: waitUntil(opts.WaitPolicy)}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	if _, err := p.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("pw: navigate %s: %w", url, err)
	}
	return nil
}

func waitUntil(w page.WaitPolicy) *playwright.WaitUntilState {
	if w == page.WaitNetworkIdle {
		return playwright.WaitUntilStateNetworkidle
	}
	return playwright.WaitUntilStateLoad
}

func (p *Page) Text(ctx context.Context) (string, error) {
	v, err := p.eval(ctx, page.JSBodyText)
	if err != nil {
		return "", fmt.Errorf("pw: body text: %w", err)
	}
	s, _ := v.(string)
	return s, nil
}

func (p *Page) MatchText(ctx context.Context, selector, pattern string) (string, bool, error) {
	v, err := p.eval(ctx, page.JSMatchText, selector, pattern)
	if err != nil {
		return "", false, fmt.Errorf("pw: match text: %w", err)
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (p *Page) IndexOf(ctx context.Context, selector, label string) (int, error) {
	v, err := p.eval(ctx, page.JSIndexOf, selector, label)
	if err != nil {
		return -1, fmt.Errorf("pw: index of %q: %w", label, err)
	}
	i, ok := toInt(v)
	if !ok {
		return -1, fmt.Errorf("pw: index of %q: unexpected result %T", label, v)
	}
	return i, nil
}

// toInt accepts the numeric shapes Evaluate may return.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func (p *Page) Nth(ctx context.Context, selector string, i int) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("pw: resolve %s[%d]: %w", selector, i, err)
	}
	if i < 0 || i >= len(els) {
		return nil, nil
	}
	return &Element{h: els[i]}, nil
}

func (p *Page) Query(ctx context.Context, selector string) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("pw: query %s: %w", selector, err)
	}
	if h == nil {
		return nil, nil
	}
	return &Element{h: h}, nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return fmt.Errorf("pw: type: %w", err)
	}
	if h == nil {
		return page.ErrNoElement
	}
	if err := h.Fill(text); err != nil {
		return fmt.Errorf("pw: type: %w", err)
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)}); err != nil {
		return fmt.Errorf("pw: screenshot: %w", err)
	}
	return nil
}

// Element wraps a Playwright element handle.
type Element struct {
	h playwright.ElementHandle
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.h.ScrollIntoViewIfNeeded()
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.h.Click()
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.h.TextContent()
}
