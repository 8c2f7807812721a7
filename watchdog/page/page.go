// Package page defines the browser-automation surface the watchdog drives.
//
// A Page wraps one open tab. Implementations live in the driver packages
// (rod, chromedp, playwright, static HTML); the locator, the extractor and the
// monitor only ever see these interfaces, so every heuristic can be exercised
// against a static document in tests.
package page

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by Type when the selector matches nothing.
var ErrNoElement = errors.New("page: no element matches selector")

// WaitPolicy selects what Navigate waits for after the navigation commits.
type WaitPolicy string

const (
	WaitLoad        WaitPolicy = "load"        // window load event
	WaitNetworkIdle WaitPolicy = "networkidle" // no in-flight requests for a short window
)

// NavigateOptions controls Navigate.
type NavigateOptions struct {
	WaitPolicy WaitPolicy
	Timeout    time.Duration
}

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits according to opts.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error

	// Text returns the rendered text of the document body.
	Text(ctx context.Context) (string, error)

	// MatchText returns the trimmed text of the first element, in document
	// order, matching selector whose whole text matches pattern. pattern
	// must stay within the subset shared by RE2 and ECMAScript.
	MatchText(ctx context.Context, selector, pattern string) (string, bool, error)

	// IndexOf runs the matching pass in page context: it returns the
	// position, among elements matching selector, of the first whose trimmed
	// lower-cased text content contains label, or -1.
	IndexOf(ctx context.Context, selector, label string) (int, error)

	// Nth resolves a live handle to the i-th element matching selector.
	// It returns nil when the element no longer exists.
	Nth(ctx context.Context, selector string, i int) (Element, error)

	// Query returns the first element matching selector, or nil.
	Query(ctx context.Context, selector string) (Element, error)

	// Type focuses the first element matching selector and types text.
	Type(ctx context.Context, selector, text string) error

	// Screenshot writes a capture of the viewport to path, overwriting it.
	Screenshot(ctx context.Context, path string) error
}

// Element is a live handle to one interactive node. Handles are only valid
// for the operation that resolved them; re-renders may replace the node.
type Element interface {
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)
}
