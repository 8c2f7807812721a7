package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Monitor.PollInterval != 8*time.Second {
		t.Errorf("PollInterval: got %v, want 8s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.RestartSettle != 15*time.Second || cfg.Monitor.ConfirmDelay != 3*time.Second ||
		cfg.Monitor.ScrollSettle != 500*time.Millisecond {
		t.Errorf("restart delays: got %+v", cfg.Monitor)
	}
	if cfg.Monitor.SinkTimeout != 2*time.Second {
		t.Errorf("SinkTimeout: got %v, want 2s", cfg.Monitor.SinkTimeout)
	}
	if cfg.Monitor.ScreenshotPath != "debug-screenshot.png" {
		t.Errorf("ScreenshotPath: got %q", cfg.Monitor.ScreenshotPath)
	}
	if got := strings.Join(cfg.Monitor.ActionLabels, ","); got != "restart,start,confirm" {
		t.Errorf("ActionLabels: got %q", got)
	}
	if got := strings.Join(cfg.Monitor.ConfirmLabels, ","); got != "confirm,yes,ok,restart" {
		t.Errorf("ConfirmLabels: got %q", got)
	}
	if cfg.Panel.NavigateTimeout != time.Minute || cfg.Panel.WaitPolicy != "networkidle" {
		t.Errorf("Panel: got %+v", cfg.Panel)
	}
	if cfg.Browser.Driver != "rod" || cfg.Browser.Viewport.Width != 1280 {
		t.Errorf("Browser: got %+v", cfg.Browser)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "console" {
		t.Errorf("Sinks: got %+v", cfg.Sinks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate(defaults): %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panelwatch.yaml")
	data := `
panel:
  server_url: https://aternos.org/server/
browser:
  driver: chromedp
  headless: true
monitor:
  poll_interval: 5s
  restart_threshold: 45
  confirm_labels: [yes]
sinks:
  - type: webhook
    url: https://hooks.example.com/panel
store:
  path: history.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.PollInterval != 5*time.Second || cfg.Monitor.RestartThreshold != 45 {
		t.Errorf("Monitor: got %+v", cfg.Monitor)
	}
	if len(cfg.Monitor.ConfirmLabels) != 1 || cfg.Monitor.ConfirmLabels[0] != "yes" {
		t.Errorf("ConfirmLabels: got %v", cfg.Monitor.ConfirmLabels)
	}
	if cfg.Monitor.RestartSettle != 15*time.Second {
		t.Errorf("RestartSettle default lost: %v", cfg.Monitor.RestartSettle)
	}
	if cfg.Sinks[0].MaxRetries != 3 {
		t.Errorf("webhook MaxRetries: got %d, want 3", cfg.Sinks[0].MaxRetries)
	}
	if cfg.Store.RetentionDays != 30 {
		t.Errorf("RetentionDays: got %d", cfg.Store.RetentionDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"login url scheme", func(c *Config) { c.Panel.LoginURL = "ftp://aternos.org" }},
		{"login url host", func(c *Config) { c.Panel.LoginURL = "https:///go" }},
		{"wait policy", func(c *Config) { c.Panel.WaitPolicy = "domcontentloaded" }},
		{"driver", func(c *Config) { c.Browser.Driver = "selenium" }},
		{"remote", func(c *Config) { c.Browser.Remote = "localhost:9222" }},
		{"screenshot absolute", func(c *Config) { c.Monitor.ScreenshotPath = "/tmp/shot.png" }},
		{"screenshot traversal", func(c *Config) { c.Monitor.ScreenshotPath = "../shot.png" }},
		{"empty label", func(c *Config) { c.Monitor.ConfirmLabels = []string{"ok", " "} }},
		{"sink type", func(c *Config) { c.Sinks = []SinkConfig{{Type: "nats"}} }},
		{"webhook url", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook"}} }},
		{"store sink", func(c *Config) { c.Sinks = []SinkConfig{{Type: "store"}} }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
}

func TestSafePath(t *testing.T) {
	for _, p := range []string{"debug-screenshot.png", "shots/latest.png"} {
		if err := SafePath(p); err != nil {
			t.Errorf("SafePath(%q): %v", p, err)
		}
	}
	for _, p := range []string{"", "/etc/passwd", "../x.png", "a/../../x.png"} {
		if err := SafePath(p); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SafePath(%q): got %v, want ErrPathTraversal", p, err)
		}
	}
}

func TestLoadCredentials_Env(t *testing.T) {
	t.Setenv("PW_TEST_USER", "steve")
	t.Setenv("PW_TEST_PASS", "s3cret")
	creds, err := LoadCredentials(CredentialsConfig{UsernameEnv: "PW_TEST_USER", PasswordEnv: "PW_TEST_PASS"})
	if err != nil {
		t.Fatal(err)
	}
	if creds.Username != "steve" || creds.Password != "s3cret" {
		t.Error("credentials not read from the environment")
	}
}

func TestLoadCredentials_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PW_FILE_USER=alex\nPW_FILE_PASS=hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PW_FILE_USER", "")
	t.Setenv("PW_FILE_PASS", "")
	os.Unsetenv("PW_FILE_USER")
	os.Unsetenv("PW_FILE_PASS")

	creds, err := LoadCredentials(CredentialsConfig{
		UsernameEnv: "PW_FILE_USER", PasswordEnv: "PW_FILE_PASS", EnvFile: envFile,
	})
	if err != nil {
		t.Fatal(err)
	}
	if creds.Username != "alex" || creds.Password != "hunter2" {
		t.Error("credentials not read from the env file")
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv("PW_MISSING_USER", "someone")
	_, err := LoadCredentials(CredentialsConfig{
		UsernameEnv: "PW_MISSING_USER", PasswordEnv: "PW_MISSING_PASS_UNSET",
		EnvFile: filepath.Join(t.TempDir(), "absent.env"),
	})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("got %v, want ErrMissingCredentials", err)
	}
	if !strings.Contains(err.Error(), "PW_MISSING_PASS_UNSET") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

func TestCredentialsNeverRendered(t *testing.T) {
	creds := Credentials{Username: "steve", Password: "s3cret"}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("login", "creds", creds)
	logger.Info("login", "creds", &creds)

	out := buf.String() + fmt.Sprintf("%v %+v %#v %s", creds, creds, creds, creds)
	for _, secret := range []string{"steve", "s3cret"} {
		if strings.Contains(out, secret) {
			t.Errorf("credential %q leaked: %s", secret, out)
		}
	}
}
