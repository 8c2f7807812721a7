// CLAUDE:SUMMARY JSON-lines sink: one {"type","data"} envelope per line, written with a single Write so concurrent readers never see torn lines.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Stdout writes JSON lines to an io.Writer, os.Stdout by default.
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdout creates a Stdout sink. A nil w means os.Stdout.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w}
}

func (s *Stdout) Send(_ context.Context, cycle report.Cycle) error {
	return s.line("cycle", cycle)
}

func (s *Stdout) SendEvent(_ context.Context, ev report.Event) error {
	return s.line("event", ev)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) line(kind string, data any) error {
	b, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		return fmt.Errorf("stdout: marshal %s: %w", kind, err)
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(b)
	return err
}
