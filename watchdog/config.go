package watchdog

import (
	"github.com/hazyhaar/panelwatch/watchdog/internal/config"
)

// Config is the top-level panelwatch configuration. Re-exported from internal.
type Config = config.Config

// PanelConfig describes the target control panel.
type PanelConfig = config.PanelConfig

// BrowserConfig controls the browser session.
type BrowserConfig = config.BrowserConfig

// MonitorConfig controls the polling loop and the restart sub-protocol.
type MonitorConfig = config.MonitorConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// Credentials is the panel account. It never renders its contents.
type Credentials = config.Credentials

// ErrMissingCredentials is returned when the username or password is unset.
var ErrMissingCredentials = config.ErrMissingCredentials

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file and validates it.
func LoadConfigFile(path string) (*Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCredentials reads the panel account from the environment named by cfg.
func LoadCredentials(cfg *Config) (Credentials, error) {
	return config.LoadCredentials(cfg.Credentials)
}
