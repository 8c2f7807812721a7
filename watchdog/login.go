package watchdog

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/panelwatch/watchdog/internal/config"
	"github.com/hazyhaar/panelwatch/watchdog/internal/locate"
	"github.com/hazyhaar/panelwatch/watchdog/page"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// ErrLoginControl is returned by Login when the page shows no sign-in
// control.
var ErrLoginControl = errors.New("watchdog: login control not found")

// Login signs into the panel and opens the server page. Every failure is
// fatal: the monitor cannot do anything useful logged out.
func (m *Monitor) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("watchdog: login: %w", config.ErrMissingCredentials)
	}
	pc, mc := m.cfg.Panel, m.cfg.Monitor
	nav := page.NavigateOptions{
		WaitPolicy: page.WaitPolicy(pc.WaitPolicy),
		Timeout:    pc.NavigateTimeout,
	}

	m.logger.Info("watchdog: opening login page", "url", pc.LoginURL)
	if err := m.page.Navigate(ctx, pc.LoginURL, nav); err != nil {
		return fmt.Errorf("watchdog: login: %w", err)
	}
	m.setPageURL(pc.LoginURL)
	if err := m.sleeper.Sleep(ctx, mc.PreloginDelay); err != nil {
		return err
	}

	if err := m.page.Type(ctx, pc.UsernameSelector, creds.Username); err != nil {
		return fmt.Errorf("watchdog: login: username field: %w", err)
	}
	if err := m.page.Type(ctx, pc.PasswordSelector, creds.Password); err != nil {
		return fmt.Errorf("watchdog: login: password field: %w", err)
	}

	el, how, err := m.loginControl(ctx)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("watchdog: login: click %s: %w", how, err)
	}
	if err := m.sleeper.Sleep(ctx, mc.LoginSettle); err != nil {
		return err
	}

	if pc.ServerURL != "" {
		if err := m.page.Navigate(ctx, pc.ServerURL, nav); err != nil {
			return fmt.Errorf("watchdog: open server page: %w", err)
		}
		m.setPageURL(pc.ServerURL)
	}

	m.logger.Info("watchdog: logged in", "control", how)
	m.emit(ctx, report.Event{
		Type:      report.EventLogin,
		Detail:    m.currentURL(),
		Timestamp: m.now().UnixMilli(),
	})
	return nil
}

// loginControl locates the sign-in control by label, falling back to the
// configured submit selector. The class and aria strategies look for restart
// controls and are not used here.
func (m *Monitor) loginControl(ctx context.Context) (page.Element, string, error) {
	lc := locate.New(locate.WithLogger(m.logger), locate.WithStrategies(locate.TextContent{}))
	if match := lc.Locate(ctx, m.page, m.cfg.Monitor.LoginLabels); match != nil {
		return match.Element, match.Strategy + ":" + match.Label, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	sel := m.cfg.Panel.SubmitSelector
	el, err := m.page.Query(ctx, sel)
	if err != nil {
		return nil, "", fmt.Errorf("watchdog: login: %w", err)
	}
	if el == nil {
		return nil, "", ErrLoginControl
	}
	return el, "selector:" + sel, nil
}

func (m *Monitor) setPageURL(u string) {
	m.mu.Lock()
	m.pageURL = u
	m.mu.Unlock()
}

func (m *Monitor) currentURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageURL
}
