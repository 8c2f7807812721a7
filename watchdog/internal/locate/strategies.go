package locate

import (
	"context"
	"fmt"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// ButtonSelector matches everything the text strategy treats as a button.
const ButtonSelector = `button, a[role="button"], div[role="button"]`

// ClassSelectors are tried in order by the class strategy.
var ClassSelectors = []string{
	`button[class*="restart" i]`,
	`button[class*="start" i]`,
	`a[class*="restart" i]`,
	`div[class*="restart" i][role="button"]`,
	`#restart-button`,
	`#start-button`,
}

// AriaSelector matches controls by accessible name.
const AriaSelector = `button[aria-label*="restart" i], button[aria-label*="start" i]`

// TextContent matches buttons whose text contains one of the labels. Labels
// are tried in order; within a label the first button in document order
// wins.
type TextContent struct {
	Selector string // defaults to ButtonSelector
}

func (TextContent) Name() string { return "text" }

func (s TextContent) Find(ctx context.Context, p page.Page, labels []string) (page.Element, string, error) {
	sel := s.Selector
	if sel == "" {
		sel = ButtonSelector
	}
	for _, label := range labels {
		// The matching pass runs in the page and yields only an index; the
		// handle is resolved afterwards so it is live in the driver.
		i, err := p.IndexOf(ctx, sel, label)
		if err != nil {
			return nil, "", fmt.Errorf("text %q: %w", label, err)
		}
		if i < 0 {
			continue
		}
		el, err := p.Nth(ctx, sel, i)
		if err != nil {
			return nil, "", fmt.Errorf("text %q: resolve: %w", label, err)
		}
		if el != nil {
			return el, label, nil
		}
	}
	return nil, "", nil
}

// Class matches a fixed list of class and id selectors. Labels are ignored.
type Class struct {
	Selectors []string // defaults to ClassSelectors
}

func (Class) Name() string { return "class" }

func (s Class) Find(ctx context.Context, p page.Page, _ []string) (page.Element, string, error) {
	sels := s.Selectors
	if len(sels) == 0 {
		sels = ClassSelectors
	}
	for _, sel := range sels {
		el, err := p.Query(ctx, sel)
		if err != nil {
			return nil, "", fmt.Errorf("class %s: %w", sel, err)
		}
		if el != nil {
			return el, sel, nil
		}
	}
	return nil, "", nil
}

// Aria matches on aria-label. Labels are ignored.
type Aria struct {
	Selector string // defaults to AriaSelector
}

func (Aria) Name() string { return "aria" }

func (s Aria) Find(ctx context.Context, p page.Page, _ []string) (page.Element, string, error) {
	sel := s.Selector
	if sel == "" {
		sel = AriaSelector
	}
	el, err := p.Query(ctx, sel)
	if err != nil {
		return nil, "", fmt.Errorf("aria: %w", err)
	}
	if el == nil {
		return nil, "", nil
	}
	return el, sel, nil
}
