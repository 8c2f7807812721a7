// CLAUDE:SUMMARY Owns the Chrome process for the monitor's lifetime: local launch (headless or headful on Xvfb) or remote connect.
// Package browser owns the Chrome session the monitor drives through Rod:
// launch or connect, open the stealth tab, shut everything down on exit.
//
// There is exactly one session per process and it is never recycled: the
// panel login lives in it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

var errClosed = errors.New("browser: manager is closed")

type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Launch settings below are ignored when it is set.
	RemoteURL string

	Headless bool
	// XvfbDisplay (":99") starts a private Xvfb for headful runs. Empty
	// inherits DISPLAY.
	XvfbDisplay string
	// NoSandbox is needed when Chrome runs as root in a container.
	NoSandbox bool
	// Bin is the Chrome binary. Empty lets the launcher find or fetch one.
	Bin string

	// ResourceBlocking names resource types the tab never loads.
	ResourceBlocking []string

	Width, Height int // viewport, 1280x800 by default

	Logger *slog.Logger
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

// Manager holds the browser and whatever local processes back it.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	closed  bool
	browser *rod.Browser
	local   *launcher.Launcher // nil when connected to a remote Chrome
	display *display
}

func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start returns the browser, launching or connecting on first use. A failed
// Start releases everything it started.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return nil, errClosed
	case m.browser != nil:
		return m.browser, nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		u, err := m.launchLocal(ctx)
		if err != nil {
			m.release()
			return nil, err
		}
		wsURL = u
	} else {
		m.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.release()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return b, nil
}

// launchLocal starts Chrome, plus Xvfb for a headful run on a private
// display, and returns its DevTools URL.
func (m *Manager) launchLocal(ctx context.Context) (string, error) {
	cfg := m.cfg
	l := launcher.New().Context(ctx).
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width, cfg.Height))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.NoSandbox {
		l = l.NoSandbox(true).Set("disable-setuid-sandbox")
	}

	if !cfg.Headless && cfg.XvfbDisplay != "" {
		d, err := startDisplay(ctx, cfg.XvfbDisplay, cfg.Width, cfg.Height)
		if err != nil {
			return "", fmt.Errorf("browser: %w", err)
		}
		m.display = d
		cfg.Logger.Info("browser: xvfb started", "display", d.name, "pid", d.cmd.Process.Pid)
		l = l.Env(d.env(os.Environ())...)
	}

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("browser: launch: %w", err)
	}
	m.local = l
	cfg.Logger.Info("browser: launched local chrome", "url", u, "headless", cfg.Headless)
	return u, nil
}

// Browser returns the connected browser, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb. The manager cannot be restarted.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.release()
}

func (m *Manager) release() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.local != nil {
		m.local.Cleanup()
		m.local = nil
	}
	if m.display != nil {
		m.display.stop()
		m.cfg.Logger.Info("browser: xvfb stopped", "display", m.display.name)
		m.display = nil
	}
	return err
}
