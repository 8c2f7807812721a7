package cdp

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/chromedp"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.Width != 1280 || c.Height != 800 {
		t.Errorf("viewport: got %dx%d, want 1280x800", c.Width, c.Height)
	}
	if c.Logger == nil {
		t.Error("logger not defaulted")
	}

	c = Config{Width: 1920, Height: 1080}
	c.defaults()
	if c.Width != 1920 || c.Height != 1080 {
		t.Errorf("explicit viewport overwritten: %dx%d", c.Width, c.Height)
	}
}

func TestRunWithoutSession(t *testing.T) {
	p := &Page{ctx: context.Background(), cancel: func() {}}
	if err := p.run(context.Background()); !errors.Is(err, chromedp.ErrInvalidContext) {
		t.Errorf("run: got %v, want ErrInvalidContext", err)
	}
}
