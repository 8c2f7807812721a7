// CLAUDE:SUMMARY Defines panelwatch config structs, parses YAML with defaults and validates URLs and paths.
// Package config handles panelwatch configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level panelwatch configuration.
type Config struct {
	Panel       PanelConfig       `yaml:"panel"`
	Browser     BrowserConfig     `yaml:"browser"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Sinks       []SinkConfig      `yaml:"sinks"`
	Store       StoreConfig       `yaml:"store"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// PanelConfig describes the target control panel.
type PanelConfig struct {
	LoginURL         string        `yaml:"login_url"`
	ServerURL        string        `yaml:"server_url"`  // opened after login; empty stays on the landing page
	WaitPolicy       string        `yaml:"wait_policy"` // load | networkidle
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	UsernameSelector string        `yaml:"username_selector"`
	PasswordSelector string        `yaml:"password_selector"`
	SubmitSelector   string        `yaml:"submit_selector"` // used when no login control is located
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	Driver           string   `yaml:"driver"` // rod | chromedp | playwright
	Remote           string   `yaml:"remote"` // CDP websocket URL; empty launches a local Chrome
	Headless         bool     `yaml:"headless"`
	XvfbDisplay      string   `yaml:"xvfb_display"` // headful only
	Viewport         Viewport `yaml:"viewport"`
	Sandbox          bool     `yaml:"sandbox"` // false passes --no-sandbox
	ResourceBlocking []string `yaml:"resource_blocking"`
	Bin              string   `yaml:"bin"` // Chrome binary; empty lets the driver find one
}

// Viewport is the window size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// MonitorConfig controls the polling loop and the restart sub-protocol.
type MonitorConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	RestartThreshold int           `yaml:"restart_threshold"` // seconds
	ScrollSettle     time.Duration `yaml:"scroll_settle"`
	ConfirmDelay     time.Duration `yaml:"confirm_delay"`
	RestartSettle    time.Duration `yaml:"restart_settle"`
	PreloginDelay    time.Duration `yaml:"prelogin_delay"`
	LoginSettle      time.Duration `yaml:"login_settle"`
	ScreenshotPath   string        `yaml:"screenshot_path"`
	ActionLabels     []string      `yaml:"action_labels"`
	ConfirmLabels    []string      `yaml:"confirm_labels"`
	LoginLabels      []string      `yaml:"login_labels"`
	StrictPlayers    bool          `yaml:"strict_players"`
	SinkTimeout      time.Duration `yaml:"sink_timeout"` // per report delivery
}

// CredentialsConfig names where the panel account is read from.
type CredentialsConfig struct {
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
	EnvFile     string `yaml:"env_file"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type       string `yaml:"type"` // console | stdout | webhook | log | store
	URL        string `yaml:"url"`  // for webhook
	MaxRetries int    `yaml:"max_retries"`
}

// StoreConfig controls the SQLite history.
type StoreConfig struct {
	Path          string `yaml:"path"` // empty disables the history
	RetentionDays int    `yaml:"retention_days"`
}

// HTTPConfig controls the status API.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Panel.LoginURL == "" {
		c.Panel.LoginURL = "https://aternos.org/go/"
	}
	if c.Panel.WaitPolicy == "" {
		c.Panel.WaitPolicy = "networkidle"
	}
	if c.Panel.NavigateTimeout <= 0 {
		c.Panel.NavigateTimeout = 60 * time.Second
	}
	if c.Panel.UsernameSelector == "" {
		c.Panel.UsernameSelector = `input[autocomplete="username"], input[type="text"]`
	}
	if c.Panel.PasswordSelector == "" {
		c.Panel.PasswordSelector = `input[type="password"]`
	}
	if c.Panel.SubmitSelector == "" {
		c.Panel.SubmitSelector = `button[type="submit"]`
	}

	if c.Browser.Driver == "" {
		c.Browser.Driver = "rod"
	}
	if c.Browser.Viewport.Width <= 0 {
		c.Browser.Viewport.Width = 1280
	}
	if c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport.Height = 800
	}

	m := &c.Monitor
	if m.PollInterval <= 0 {
		m.PollInterval = 8 * time.Second
	}
	if m.RestartThreshold <= 0 {
		m.RestartThreshold = 30
	}
	if m.ScrollSettle <= 0 {
		m.ScrollSettle = 500 * time.Millisecond
	}
	if m.ConfirmDelay <= 0 {
		m.ConfirmDelay = 3 * time.Second
	}
	if m.RestartSettle <= 0 {
		m.RestartSettle = 15 * time.Second
	}
	if m.SinkTimeout <= 0 {
		m.SinkTimeout = 2 * time.Second
	}
	if m.PreloginDelay <= 0 {
		m.PreloginDelay = 2 * time.Second
	}
	if m.LoginSettle <= 0 {
		m.LoginSettle = 5 * time.Second
	}
	if m.ScreenshotPath == "" {
		m.ScreenshotPath = "debug-screenshot.png"
	}
	if len(m.ActionLabels) == 0 {
		m.ActionLabels = []string{"restart", "start", "confirm"}
	}
	if len(m.ConfirmLabels) == 0 {
		m.ConfirmLabels = []string{"confirm", "yes", "ok", "restart"}
	}
	if len(m.LoginLabels) == 0 {
		m.LoginLabels = []string{"sign in", "login", "log in"}
	}

	if c.Credentials.UsernameEnv == "" {
		c.Credentials.UsernameEnv = "ATERNOS_USERNAME"
	}
	if c.Credentials.PasswordEnv == "" {
		c.Credentials.PasswordEnv = "ATERNOS_PASSWORD"
	}
	if c.Credentials.EnvFile == "" {
		c.Credentials.EnvFile = ".env"
	}

	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "console"}}
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == "webhook" && c.Sinks[i].MaxRetries <= 0 {
			c.Sinks[i].MaxRetries = 3
		}
	}
	if c.Store.RetentionDays <= 0 {
		c.Store.RetentionDays = 30
	}
}
