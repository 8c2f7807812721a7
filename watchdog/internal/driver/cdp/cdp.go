// Package cdp implements page.Page on chromedp, as an alternative to the
// Rod driver.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// Config configures the chromedp session.
type Config struct {
	RemoteURL     string // DevTools WebSocket URL; empty launches Chrome
	Headless      bool
	NoSandbox     bool
	Bin           string
	Width, Height int
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Page is a chromedp tab.
type Page struct {
	ctx    context.Context // chromedp tab context
	cancel func()
}

var _ page.Page = (*Page)(nil)

// Start allocates a browser and opens one tab. parent bounds the whole
// session; Close releases it early.
func Start(parent context.Context, cfg Config) (*Page, error) {
	cfg.defaults()

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(cfg.Width, cfg.Height),
		)
		if cfg.NoSandbox {
			opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
		}
		if cfg.Bin != "" {
			opts = append(opts, chromedp.ExecPath(cfg.Bin))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, opts...)
	}

	logger := cfg.Logger
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("cdp: " + fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height))); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("cdp: start: %w", err)
	}
	logger.Info("cdp: browser started", "remote", cfg.RemoteURL != "", "headless", cfg.Headless)

	return &Page{ctx: ctx, cancel: func() { cancel(); allocCancel() }}, nil
}

// Close closes the tab and the browser.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

// run executes actions on the tab, cancelled when either ctx or the
// session ends.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *Page) eval(ctx context.Context, res any, fn string, args ...any) error {
	expr, err := page.Invocation(fn, args...)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Evaluate(expr, res))
}

func (p *Page) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if opts.WaitPolicy == page.WaitNetworkIdle {
		actions = append(actions, waitNetworkIdle(500*time.Millisecond))
	}
	if err := p.run(ctx, actions...); err != nil {
		return fmt.Errorf("cdp: navigate %s: %w", url, err)
	}
	return nil
}

// waitNetworkIdle returns once the page has loaded no new resource for
// quiet. Navigate has already waited for the load event.
func waitNetworkIdle(quiet time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		const poll = 100 * time.Millisecond
		var last, n int
		stable := time.Duration(0)
		for stable < quiet {
			if err := chromedp.Evaluate(`performance.getEntriesByType('resource').length`, &n).Do(ctx); err != nil {
				return err
			}
			if n == last {
				stable += poll
			} else {
				last, stable = n, 0
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(poll):
			}
		}
		return nil
	})
}

func (p *Page) Text(ctx context.Context) (string, error) {
	var s string
	if err := p.eval(ctx, &s, page.JSBodyText); err != nil {
		return "", fmt.Errorf("cdp: body text: %w", err)
	}
	return s, nil
}

func (p *Page) MatchText(ctx context.Context, selector, pattern string) (string, bool, error) {
	var s *string
	if err := p.eval(ctx, &s, page.JSMatchText, selector, pattern); err != nil {
		return "", false, fmt.Errorf("cdp: match text: %w", err)
	}
	if s == nil {
		return "", false, nil
	}
	return *s, true, nil
}

func (p *Page) IndexOf(ctx context.Context, selector, label string) (int, error) {
	var i int
	if err := p.eval(ctx, &i, page.JSIndexOf, selector, label); err != nil {
		return -1, fmt.Errorf("cdp: index of %q: %w", label, err)
	}
	return i, nil
}

// Nth resolves through DOM.querySelectorAll, whose order matches the
// in-page pass.
func (p *Page) Nth(ctx context.Context, selector string, i int) (page.Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("cdp: resolve %s[%d]: %w", selector, i, err)
	}
	if i < 0 || i >= len(nodes) {
		return nil, nil
	}
	return &Element{page: p, node: nodes[i]}, nil
}

func (p *Page) Query(ctx context.Context, selector string) (page.Element, error) {
	node, err := p.first(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("cdp: query %s: %w", selector, err)
	}
	if node == nil {
		return nil, nil
	}
	return &Element{page: p, node: node}, nil
}

func (p *Page) first(ctx context.Context, selector string) (*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	node, err := p.first(ctx, selector)
	if err != nil {
		return fmt.Errorf("cdp: type: %w", err)
	}
	if node == nil {
		return page.ErrNoElement
	}
	ids := []cdp.NodeID{node.NodeID}
	if err := p.run(ctx, chromedp.Focus(ids, chromedp.ByNodeID), chromedp.SendKeys(ids, text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("cdp: type: %w", err)
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("cdp: screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("cdp: screenshot: %w", err)
	}
	return nil
}

// Element is a DOM node of a chromedp tab.
type Element struct {
	page *Page
	node *cdp.Node
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx)
	}))
}

func (e *Element) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.page.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &s, chromedp.ByNodeID))
	return s, err
}
