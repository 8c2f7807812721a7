package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// networkIdle is how long the network must stay quiet for WaitNetworkIdle.
const networkIdle = 500 * time.Millisecond

// Tab wraps the Rod page the monitor drives. It implements page.Page.
type Tab struct {
	Page    *rod.Page
	blocker *blocker
	mgr     *Manager
}

var _ page.Page = (*Tab)(nil)

// OpenTab creates a stealth tab with the configured viewport and resource
// blocking. It does not navigate.
func OpenTab(ctx context.Context, mgr *Manager) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	p, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	err = p.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             mgr.cfg.Width,
		Height:            mgr.cfg.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: viewport: %w", err)
	}

	t := &Tab{Page: p, mgr: mgr, blocker: newBlocker(mgr.cfg.ResourceBlocking)}
	t.blocker.attach(p)
	return t, nil
}

func (t *Tab) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	p := t.Page.Context(ctx)

	if opts.WaitPolicy == page.WaitNetworkIdle {
		wait := p.WaitRequestIdle(networkIdle, nil, nil, nil)
		if err := p.Navigate(url); err != nil {
			return fmt.Errorf("browser: navigate %s: %w", url, err)
		}
		wait()
		return ctx.Err()
	}

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

func (t *Tab) Text(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(page.JSBodyText)
	if err != nil {
		return "", fmt.Errorf("browser: body text: %w", err)
	}
	return res.Value.Str(), nil
}

func (t *Tab) MatchText(ctx context.Context, selector, pattern string) (string, bool, error) {
	res, err := t.Page.Context(ctx).Eval(page.JSMatchText, selector, pattern)
	if err != nil {
		return "", false, fmt.Errorf("browser: match text: %w", err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func (t *Tab) IndexOf(ctx context.Context, selector, label string) (int, error) {
	res, err := t.Page.Context(ctx).Eval(page.JSIndexOf, selector, label)
	if err != nil {
		return -1, fmt.Errorf("browser: index of %q: %w", label, err)
	}
	return res.Value.Int(), nil
}

func (t *Tab) Nth(ctx context.Context, selector string, i int) (page.Element, error) {
	el, err := t.Page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(page.JSNth, selector, i))
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("browser: resolve %s[%d]: %w", selector, i, err)
	}
	return &Element{el: el}, nil
}

func (t *Tab) Query(ctx context.Context, selector string) (page.Element, error) {
	has, el, err := t.Page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return &Element{el: el}, nil
}

func (t *Tab) Type(ctx context.Context, selector, text string) error {
	has, el, err := t.Page.Context(ctx).Has(selector)
	if err != nil {
		return fmt.Errorf("browser: type: %w", err)
	}
	if !has {
		return page.ErrNoElement
	}
	if err := el.Context(ctx).Input(text); err != nil {
		return fmt.Errorf("browser: type: %w", err)
	}
	return nil
}

func (t *Tab) Screenshot(ctx context.Context, path string) error {
	data, err := t.Page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("browser: screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("browser: screenshot: %w", err)
	}
	return nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	t.blocker.stop(t.mgr.cfg.Logger)
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

// Element is a live Rod element handle.
type Element struct {
	el *rod.Element
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *Element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}
