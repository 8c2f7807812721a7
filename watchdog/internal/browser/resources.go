// CLAUDE:SUMMARY Request interception dropping the resource types the panel does not need to render its status (images, fonts, media, stylesheets).
package browser

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps the config spelling to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"scripts":     proto.NetworkResourceTypeScript,
}

// blocker fails matching requests with BlockedByClient and lets everything
// else through.
type blocker struct {
	types   map[string]bool // lower-cased CDP type names
	router  *rod.HijackRouter
	blocked atomic.Int64
}

func newBlocker(names []string) *blocker {
	b := &blocker{types: make(map[string]bool, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := resourceAliases[n]; ok {
			n = strings.ToLower(string(t))
		}
		if n != "" {
			b.types[n] = true
		}
	}
	return b
}

func (b *blocker) blocks(t proto.NetworkResourceType) bool {
	return b.types[strings.ToLower(string(t))]
}

// attach starts intercepting p. Nothing is intercepted when no type is
// configured.
func (b *blocker) attach(p *rod.Page) {
	if len(b.types) == 0 {
		return
	}
	b.router = p.HijackRequests()
	b.router.MustAdd("*", func(h *rod.Hijack) {
		if b.blocks(h.Request.Type()) {
			b.blocked.Add(1)
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go b.router.Run()
}

func (b *blocker) stop(logger *slog.Logger) {
	if b == nil || b.router == nil {
		return
	}
	if err := b.router.Stop(); err != nil {
		logger.Debug("browser: stop interception", "error", err)
	}
	logger.Debug("browser: interception stopped", "blocked", b.blocked.Load())
	b.router = nil
}
