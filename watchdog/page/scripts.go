package page

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page-context functions shared by the CDP drivers. Each takes its inputs as
// arguments so no selector or label is ever spliced into script source.
const (
	// JSBodyText returns document.body's rendered text.
	JSBodyText = `() => document.body ? (document.body.innerText || document.body.textContent || '') : ''`

	// JSMatchText(selector, pattern) returns the first full-match text or null.
	JSMatchText = `(sel, pattern) => {
	const re = new RegExp(pattern);
	for (const el of document.querySelectorAll(sel)) {
		const text = (el.innerText || el.textContent || '').trim();
		if (re.test(text)) return text;
	}
	return null;
}`

	// JSIndexOf(selector, label) returns the index of the first element whose
	// normalised text contains label, or -1.
	JSIndexOf = `(sel, label) => {
	const needle = label.toLowerCase();
	const els = Array.from(document.querySelectorAll(sel));
	return els.findIndex(el => (el.textContent || el.innerText || '').trim().toLowerCase().includes(needle));
}`

	// JSNth(selector, i) returns the i-th matching element or null.
	JSNth = `(sel, i) => document.querySelectorAll(sel)[i] || null`
)

// Invocation renders fn applied to args as a standalone expression, for
// drivers whose evaluate call takes source text rather than a function plus
// arguments. Arguments are JSON-encoded.
func Invocation(fn string, args ...any) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("page: encode argument %d: %w", i, err)
		}
		parts[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(parts, ", ") + ")", nil
}
