package watchdog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/internal/browser"
	"github.com/hazyhaar/panelwatch/watchdog/internal/driver/cdp"
	"github.com/hazyhaar/panelwatch/watchdog/internal/driver/pw"
	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// Session is an open browser tab the monitor can drive.
type Session interface {
	page.Page
	Close() error
}

// OpenSession starts the configured browser driver and opens one tab.
func OpenSession(ctx context.Context, cfg BrowserConfig, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", "rod":
		return openRod(ctx, cfg, logger)
	case "chromedp":
		s, err := cdp.Start(ctx, cdp.Config{
			RemoteURL: cfg.Remote,
			Headless:  cfg.Headless,
			NoSandbox: !cfg.Sandbox,
			Bin:       cfg.Bin,
			Width:     cfg.Viewport.Width,
			Height:    cfg.Viewport.Height,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "playwright":
		s, err := pw.Start(ctx, pw.Config{
			RemoteURL: cfg.Remote,
			Headless:  cfg.Headless,
			NoSandbox: !cfg.Sandbox,
			Bin:       cfg.Bin,
			Width:     cfg.Viewport.Width,
			Height:    cfg.Viewport.Height,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("watchdog: unknown browser driver %q", cfg.Driver)
	}
}

// rodSession owns both the tab and the Chrome process behind it.
type rodSession struct {
	*browser.Tab
	mgr *browser.Manager
}

func (s *rodSession) Close() error {
	err := s.Tab.Close()
	if merr := s.mgr.Close(); err == nil {
		err = merr
	}
	return err
}

func openRod(ctx context.Context, cfg BrowserConfig, logger *slog.Logger) (Session, error) {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Remote,
		Headless:         cfg.Headless,
		XvfbDisplay:      cfg.XvfbDisplay,
		NoSandbox:        !cfg.Sandbox,
		Bin:              cfg.Bin,
		ResourceBlocking: cfg.ResourceBlocking,
		Width:            cfg.Viewport.Width,
		Height:           cfg.Viewport.Height,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("watchdog: start browser: %w", err)
	}
	tab, err := browser.OpenTab(ctx, mgr)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("watchdog: open tab: %w", err)
	}
	return &rodSession{Tab: tab, mgr: mgr}, nil
}
