// Package extract reads the player count and the shutdown countdown from the
// rendered text of a panel page. Both reads are best-effort: an evaluation
// error never escapes, it degrades to the fail-open defaults (0 players, no
// timer).
package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/hazyhaar/panelwatch/watchdog/page"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// PlayerPatterns are applied in order to the whole body text; the first
// capture group is the count.
var PlayerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*/\s*\d+`),
	regexp.MustCompile(`(?i)Players?:\s*(\d+)`),
	regexp.MustCompile(`(?i)Online:\s*(\d+)`),
}

// PlayerSelectors are scanned when no pattern matches the body text.
var PlayerSelectors = []string{".players", ".player-count", `[class*="player"]`}

// TimerSelector lists the elements whose whole text may be a countdown.
const TimerSelector = "span, div, p"

// TimerPattern is evaluated in the page. It is deliberately valid in both
// RE2 and ECMAScript.
const TimerPattern = `^\d{1,2}:\d{2}$`

var (
	digits  = regexp.MustCompile(`\d+`)
	timerRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Extractor reads facts from a page.
type Extractor struct {
	logger *slog.Logger
}

// New returns an Extractor. A nil logger means slog.Default().
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Facts runs both extractions. They are independent: a failure of one does
// not affect the other.
func (e *Extractor) Facts(ctx context.Context, p page.Page) report.Facts {
	f := e.Players(ctx, p)
	f.Timer = e.Timer(ctx, p)
	return f
}

// Players returns the player count with its provenance. PlayerSource is
// "pattern:N" or "selector:SEL" on success and report.PlayerSourceDefault
// when the count fell back to zero.
func (e *Extractor) Players(ctx context.Context, p page.Page) report.Facts {
	unknown := report.Facts{PlayerSource: report.PlayerSourceDefault}

	text, err := p.Text(ctx)
	if err != nil {
		e.logger.Warn("extract: players: body text", "error", err)
		return unknown
	}
	if n, i, ok := MatchPlayers(text); ok {
		return report.Facts{Players: n, PlayersKnown: true, PlayerSource: "pattern:" + strconv.Itoa(i)}
	}

	for _, sel := range PlayerSelectors {
		el, err := p.Query(ctx, sel)
		if err != nil {
			e.logger.Warn("extract: players: selector", "selector", sel, "error", err)
			return unknown
		}
		if el == nil {
			continue
		}
		t, err := el.Text(ctx)
		if err != nil {
			e.logger.Warn("extract: players: element text", "selector", sel, "error", err)
			return unknown
		}
		if n, ok := firstNumber(t); ok {
			return report.Facts{Players: n, PlayersKnown: true, PlayerSource: "selector:" + sel}
		}
		// The first element of a selector decides; a text with no digits
		// moves on to the next selector.
	}
	return unknown
}

// MatchPlayers applies PlayerPatterns to text. It returns the count and the
// index of the pattern that matched.
func MatchPlayers(text string) (n, pattern int, ok bool) {
	for i, re := range PlayerPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// Overflowing digit runs read as zero, like a failed parse.
			return 0, i, true
		}
		return n, i, true
	}
	return 0, -1, false
}

func firstNumber(s string) (int, bool) {
	m := digits.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, true
	}
	return n, true
}

// Timer returns the first countdown found in document order, or nil.
func (e *Extractor) Timer(ctx context.Context, p page.Page) *report.Timer {
	raw, ok, err := p.MatchText(ctx, TimerSelector, TimerPattern)
	if err != nil {
		e.logger.Warn("extract: timer", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return ParseTimer(raw)
}

// ParseTimer parses "M:SS" or "MM:SS". Anything else yields nil. Seconds are
// taken as written; "1:75" is 135 seconds.
func ParseTimer(raw string) *report.Timer {
	m := timerRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	mins, _ := strconv.Atoi(m[1])
	secs, _ := strconv.Atoi(m[2])
	return &report.Timer{
		Minutes: mins,
		Seconds: secs,
		Total:   mins*60 + secs,
		Raw:     raw,
	}
}
