// Package locate finds actionable controls on a panel page whose markup is
// not under our control. A Locator tries an ordered list of Strategy values
// and returns the first hit.
package locate

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// Strategy is one heuristic for finding a control. Find returns the element
// and the label or selector that matched, or a nil element when it found
// nothing.
type Strategy interface {
	Name() string
	Find(ctx context.Context, p page.Page, labels []string) (page.Element, string, error)
}

// Match is a located control.
type Match struct {
	Element  page.Element
	Strategy string // strategy name, e.g. "text"
	Label    string // label or selector that produced the hit
}

// Locator runs strategies in priority order.
type Locator struct {
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets the logger used for swallowed evaluation errors.
func WithLogger(l *slog.Logger) Option {
	return func(lc *Locator) { lc.logger = l }
}

// WithStrategies replaces the default strategy chain.
func WithStrategies(s ...Strategy) Option {
	return func(lc *Locator) { lc.strategies = s }
}

// New returns a Locator with the default chain: text, class, aria.
func New(opts ...Option) *Locator {
	lc := &Locator{
		strategies: Default(),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(lc)
	}
	return lc
}

// Default returns the standard strategy chain.
func Default() []Strategy {
	return []Strategy{TextContent{}, Class{}, Aria{}}
}

// Locate returns the first control found, or nil. The first strategy to hit
// short-circuits the rest. An evaluation error from any strategy abandons
// the whole search: it is logged and reported as not found.
func (lc *Locator) Locate(ctx context.Context, p page.Page, labels []string) *Match {
	for _, s := range lc.strategies {
		if ctx.Err() != nil {
			return nil
		}
		el, label, err := s.Find(ctx, p, labels)
		if err != nil {
			lc.logger.Warn("locate: search failed",
				"strategy", s.Name(), "labels", labels, "error", err)
			return nil
		}
		if el != nil {
			lc.logger.Debug("locate: found",
				"strategy", s.Name(), "label", label)
			return &Match{Element: el, Strategy: s.Name(), Label: label}
		}
	}
	return nil
}
