package watchdog

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/internal/decide"
	"github.com/hazyhaar/panelwatch/watchdog/internal/extract"
	"github.com/hazyhaar/panelwatch/watchdog/internal/locate"
	"github.com/hazyhaar/panelwatch/watchdog/internal/static"
	"github.com/hazyhaar/panelwatch/watchdog/page"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Control is a located control, as reported by Inspect.
type Control struct {
	Strategy string `json:"strategy"`
	Label    string `json:"label"`
	Text     string `json:"text"`
}

// Inspection is what one poll would see on a page, without clicking.
type Inspection struct {
	Facts    report.Facts    `json:"facts"`
	Decision report.Decision `json:"decision"`
	Action   *Control        `json:"action,omitempty"`
	Confirm  *Control        `json:"confirm,omitempty"`
	Login    *Control        `json:"login,omitempty"`
}

// OpenHTML loads a saved panel page for Inspect.
func OpenHTML(path string) (page.Page, error) {
	p, err := static.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Inspect runs the extractor, the decision and every locator search against
// p and reports the results. Nothing is clicked.
func Inspect(ctx context.Context, cfg *Config, p page.Page, logger *slog.Logger) Inspection {
	if logger == nil {
		logger = slog.Default()
	}
	facts := extract.New(logger).Facts(ctx, p)
	in := Inspection{
		Facts: facts,
		Decision: decide.Policy{
			ThresholdSeconds: cfg.Monitor.RestartThreshold,
			StrictPlayers:    cfg.Monitor.StrictPlayers,
		}.Evaluate(facts),
	}

	lc := locate.New(locate.WithLogger(logger))
	in.Action = describe(ctx, logger, lc.Locate(ctx, p, cfg.Monitor.ActionLabels))
	in.Confirm = describe(ctx, logger, lc.Locate(ctx, p, cfg.Monitor.ConfirmLabels))
	login := locate.New(locate.WithLogger(logger), locate.WithStrategies(locate.TextContent{}))
	in.Login = describe(ctx, logger, login.Locate(ctx, p, cfg.Monitor.LoginLabels))
	return in
}

// describe summarises a match. An unreadable element text leaves Text empty.
func describe(ctx context.Context, logger *slog.Logger, m *locate.Match) *Control {
	if m == nil {
		return nil
	}
	text, err := m.Element.Text(ctx)
	if err != nil {
		logger.Debug("inspect: control text", "strategy", m.Strategy, "label", m.Label, "error", err)
	}
	return &Control{Strategy: m.Strategy, Label: m.Label, Text: text}
}
