// CLAUDE:SUMMARY goquery-backed page.Page over a saved HTML document: innerText emulation, recorded clicks, HTML "screenshots".
// Package static implements page.Page over a parsed HTML document. There is
// no script engine: text is derived from the node tree the way a browser's
// innerText would render it, clicks are recorded instead of dispatched, and
// a screenshot writes the current HTML.
//
// It backs the inspect command (heuristics replayed against a saved panel
// page) and stands in for Chrome in tests.
package static

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/panelwatch/watchdog/page"
)

// Attribute values compared case-insensitively by the locator's selectors.
// They are lower-cased at parse time and the CSS " i" flag is stripped from
// selectors, so matching works regardless of selector engine support.
var foldedAttrs = map[string]bool{"class": true, "id": true, "aria-label": true}

var caseFlag = regexp.MustCompile(`\s+i\s*\]`)

// Click records one dispatched click.
type Click struct {
	Tag  string
	Text string
}

// Page is a static page.Page. It is safe for concurrent use.
type Page struct {
	mu     sync.Mutex
	doc    *goquery.Document
	url    string
	clicks []Click
	typed  map[string]string
	shots  []string

	// Load resolves a URL to a document for Navigate. Nil means URLs are
	// treated as local file paths.
	Load func(ctx context.Context, url string) (io.ReadCloser, error)
}

var _ page.Page = (*Page)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*Page, error) {
	doc, err := parseDoc(r)
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc, typed: make(map[string]string)}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Page, error) {
	return Parse(strings.NewReader(s))
}

// Open parses the HTML file at path.
func Open(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("static: open: %w", err)
	}
	defer f.Close()
	p, err := Parse(f)
	if err != nil {
		return nil, err
	}
	p.url = path
	return p, nil
}

func parseDoc(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("static: parse: %w", err)
	}
	for _, root := range doc.Nodes {
		foldAttrs(root)
	}
	return doc, nil
}

func foldAttrs(n *html.Node) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			if foldedAttrs[a.Key] {
				n.Attr[i].Val = strings.ToLower(a.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		foldAttrs(c)
	}
}

func normalizeSelector(sel string) string {
	return caseFlag.ReplaceAllString(sel, "]")
}

// find runs a selector, converting cascadia's parse panics into errors.
func (p *Page) find(sel string) (s *goquery.Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("static: selector %q: %v", sel, r)
		}
	}()
	return p.doc.Find(normalizeSelector(sel)), nil
}

// URL returns the last navigated URL or opened path.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Navigate replaces the document with the one Load returns for url.
func (p *Page) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	load := p.Load
	if load == nil {
		load = func(_ context.Context, u string) (io.ReadCloser, error) { return os.Open(u) }
	}
	rc, err := load(ctx, url)
	if err != nil {
		return fmt.Errorf("static: navigate %s: %w", url, err)
	}
	defer rc.Close()
	doc, err := parseDoc(rc)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.doc = doc
	p.url = url
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Text(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	body := p.doc.Find("body")
	if body.Length() == 0 {
		return "", nil
	}
	return innerText(body.Nodes[0]), ctx.Err()
}

func (p *Page) MatchText(ctx context.Context, selector, pattern string) (string, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", false, fmt.Errorf("static: pattern: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(selector)
	if err != nil {
		return "", false, err
	}
	for _, n := range sel.Nodes {
		text := strings.TrimSpace(innerText(n))
		if re.MatchString(text) {
			return text, true, nil
		}
	}
	return "", false, ctx.Err()
}

func (p *Page) IndexOf(ctx context.Context, selector, label string) (int, error) {
	needle := strings.ToLower(label)
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(selector)
	if err != nil {
		return -1, err
	}
	for i, n := range sel.Nodes {
		if strings.Contains(strings.ToLower(strings.TrimSpace(textContent(n))), needle) {
			return i, nil
		}
	}
	return -1, ctx.Err()
}

func (p *Page) Nth(_ context.Context, selector string, i int) (page.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= sel.Length() {
		return nil, nil
	}
	return &Element{page: p, node: sel.Nodes[i]}, nil
}

func (p *Page) Query(_ context.Context, selector string) (page.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, nil
	}
	return &Element{page: p, node: sel.Nodes[0]}, nil
}

func (p *Page) Type(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return page.ErrNoElement
	}
	sel.First().SetAttr("value", text)
	p.typed[selector] = text
	return nil
}

// Screenshot writes the current document's HTML to path.
func (p *Page) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf bytes.Buffer
	for _, n := range p.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return fmt.Errorf("static: render: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("static: screenshot: %w", err)
	}
	p.shots = append(p.shots, path)
	return nil
}

// Clicks returns the clicks dispatched so far.
func (p *Page) Clicks() []Click {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Click(nil), p.clicks...)
}

// Typed returns the text typed into selector.
func (p *Page) Typed(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.typed[selector]
	return v, ok
}

// Screenshots returns the paths written by Screenshot.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shots...)
}

// Element is a node of a static Page.
type Element struct {
	page *Page
	node *html.Node
}

func (e *Element) ScrollIntoView(context.Context) error { return nil }

func (e *Element) Click(context.Context) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.clicks = append(e.page.clicks, Click{
		Tag:  e.node.Data,
		Text: strings.TrimSpace(innerText(e.node)),
	})
	return nil
}

func (e *Element) Text(context.Context) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return innerText(e.node), nil
}
