package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a configured output path escapes the
// working directory.
var ErrPathTraversal = errors.New("config: path escapes the working directory")

// ErrUnsafeScheme is returned when a URL is not http or https.
var ErrUnsafeScheme = errors.New("config: only http and https URLs are allowed")

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := ValidateURL(c.Panel.LoginURL); err != nil {
		return fmt.Errorf("config: panel.login_url: %w", err)
	}
	if c.Panel.ServerURL != "" {
		if err := ValidateURL(c.Panel.ServerURL); err != nil {
			return fmt.Errorf("config: panel.server_url: %w", err)
		}
	}
	switch c.Panel.WaitPolicy {
	case "load", "networkidle":
	default:
		return fmt.Errorf("config: panel.wait_policy: unknown policy %q", c.Panel.WaitPolicy)
	}

	switch c.Browser.Driver {
	case "rod", "chromedp", "playwright":
	default:
		return fmt.Errorf("config: browser.driver: unknown driver %q", c.Browser.Driver)
	}
	if c.Browser.Remote != "" {
		u, err := url.Parse(c.Browser.Remote)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("config: browser.remote: want a ws:// or http:// URL, got %q", c.Browser.Remote)
		}
	}

	if err := SafePath(c.Monitor.ScreenshotPath); err != nil {
		return fmt.Errorf("config: monitor.screenshot_path: %w", err)
	}
	for name, labels := range map[string][]string{
		"action_labels":  c.Monitor.ActionLabels,
		"confirm_labels": c.Monitor.ConfirmLabels,
		"login_labels":   c.Monitor.LoginLabels,
	} {
		for _, l := range labels {
			if strings.TrimSpace(l) == "" {
				return fmt.Errorf("config: monitor.%s: empty label", name)
			}
		}
	}

	for i, s := range c.Sinks {
		switch s.Type {
		case "console", "stdout", "log":
		case "webhook":
			if err := ValidateURL(s.URL); err != nil {
				return fmt.Errorf("config: sinks[%d]: %w", i, err)
			}
		case "store":
			if c.Store.Path == "" {
				return fmt.Errorf("config: sinks[%d]: store sink needs store.path", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// ValidateURL checks that rawURL is absolute http or https with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// SafePath accepts relative paths that stay under the working directory.
func SafePath(p string) error {
	if p == "" || !filepath.IsLocal(p) {
		return ErrPathTraversal
	}
	return nil
}
