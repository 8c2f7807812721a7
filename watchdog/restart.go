package watchdog

import (
	"context"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// restart runs the restart sub-protocol once. There is no retry within a
// cycle: the next poll re-evaluates from fresh facts.
func (m *Monitor) restart(ctx context.Context) report.Attempt {
	mc := m.cfg.Monitor
	a := report.Attempt{ID: report.NewID(), StartedAt: m.now().UnixMilli()}
	finish := func(o report.Outcome, err error) report.Attempt {
		a.Outcome = o
		if err != nil {
			a.Error = err.Error()
		}
		a.FinishedAt = m.now().UnixMilli()
		return a
	}

	action := m.locator.Locate(ctx, m.page, mc.ActionLabels)
	if action == nil {
		if ctx.Err() != nil {
			return finish(report.OutcomeAborted, ctx.Err())
		}
		if err := m.page.Screenshot(ctx, mc.ScreenshotPath); err != nil {
			m.logger.Warn("watchdog: restart control not found, screenshot failed",
				"labels", mc.ActionLabels, "error", err)
			return finish(report.OutcomeNoControl, err)
		}
		a.Screenshot = mc.ScreenshotPath
		m.logger.Warn("watchdog: restart control not found",
			"labels", mc.ActionLabels, "screenshot", mc.ScreenshotPath)
		return finish(report.OutcomeNoControl, nil)
	}
	a.ActionStrategy, a.ActionLabel = action.Strategy, action.Label
	m.logger.Info("watchdog: restart control found", "strategy", action.Strategy, "label", action.Label)

	if err := action.Element.ScrollIntoView(ctx); err != nil {
		m.logger.Warn("watchdog: scroll failed", "error", err)
		return finish(report.OutcomeScrollFailed, err)
	}
	if err := m.sleeper.Sleep(ctx, mc.ScrollSettle); err != nil {
		return finish(report.OutcomeAborted, err)
	}
	if err := action.Element.Click(ctx); err != nil {
		m.logger.Warn("watchdog: click failed", "error", err)
		return finish(report.OutcomeClickFailed, err)
	}
	outcome := report.OutcomeClicked

	// The action click is done from here on: a cancelled wait ends the
	// attempt early but does not change its outcome.
	if err := m.sleeper.Sleep(ctx, mc.ConfirmDelay); err != nil {
		return finish(outcome, nil)
	}

	var confirmErr error
	if confirm := m.locator.Locate(ctx, m.page, mc.ConfirmLabels); confirm != nil {
		a.ConfirmStrategy, a.ConfirmLabel = confirm.Strategy, confirm.Label
		if err := confirm.Element.Click(ctx); err != nil {
			m.logger.Warn("watchdog: confirm click failed", "label", confirm.Label, "error", err)
			confirmErr = err
		} else {
			outcome = report.OutcomeConfirmed
			m.logger.Info("watchdog: restart confirmed", "strategy", confirm.Strategy, "label", confirm.Label)
		}
	} else {
		m.logger.Info("watchdog: no confirmation control")
	}

	if err := m.sleeper.Sleep(ctx, mc.RestartSettle); err != nil {
		return finish(outcome, confirmErr)
	}
	m.logger.Info("watchdog: restart attempt finished", "outcome", outcome)
	return finish(outcome, confirmErr)
}
