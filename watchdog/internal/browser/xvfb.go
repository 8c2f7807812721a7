// CLAUDE:SUMMARY Virtual X display for headful Chrome: spawns Xvfb and waits for its socket before Chrome is launched.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	displayReadyTimeout = 5 * time.Second
	displayPoll         = 50 * time.Millisecond
)

// display is one Xvfb server.
type display struct {
	name string // ":99"
	cmd  *exec.Cmd
}

// socketPath returns the Unix socket Xvfb listens on for name, or "" when
// name is not a local display number.
func socketPath(name string) string {
	num, ok := strings.CutPrefix(name, ":")
	if !ok || num == "" {
		return ""
	}
	if i := strings.IndexByte(num, '.'); i >= 0 {
		num = num[:i]
	}
	return filepath.Join("/tmp/.X11-unix", "X"+num)
}

// startDisplay launches Xvfb on name with a 24-bit screen of w x h and
// returns once it accepts connections.
func startDisplay(ctx context.Context, name string, w, h int) (*display, error) {
	cmd := exec.Command("Xvfb", name, "-screen", "0", fmt.Sprintf("%dx%dx24", w, h), "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start xvfb: %w", err)
	}
	d := &display{name: name, cmd: cmd}

	sock := socketPath(name)
	if sock == "" {
		return d, nil
	}
	ctx, cancel := context.WithTimeout(ctx, displayReadyTimeout)
	defer cancel()
	tick := time.NewTicker(displayPoll)
	defer tick.Stop()
	for {
		if _, err := os.Stat(sock); err == nil {
			return d, nil
		}
		select {
		case <-ctx.Done():
			d.stop()
			return nil, fmt.Errorf("xvfb %s not ready: %w", name, ctx.Err())
		case <-tick.C:
		}
	}
}

// env returns environ with DISPLAY pointing at d.
func (d *display) env(environ []string) []string {
	out := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if !strings.HasPrefix(kv, "DISPLAY=") {
			out = append(out, kv)
		}
	}
	return append(out, "DISPLAY="+d.name)
}

func (d *display) stop() {
	if d == nil || d.cmd.Process == nil {
		return
	}
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
}
