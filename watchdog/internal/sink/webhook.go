// CLAUDE:SUMMARY POSTs cycles and events as JSON envelopes; retries transient failures (network, 408, 429, 5xx) with doubling backoff and Retry-After.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Delivery headers. The delivery ID is stable across retries of one report
// so receivers can deduplicate.
const (
	HeaderDelivery = "X-Panelwatch-Delivery"
	HeaderKind     = "X-Panelwatch-Kind"
)

const maxRetryAfter = 30 * time.Second

// Webhook POSTs JSON to a URL.
type Webhook struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets how many times a transient failure is retried.
// Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.retries = n }
}

func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// WithWebhookBackoff sets the first retry delay; it doubles per retry.
// Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a Webhook sink targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 3,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Webhook) Send(ctx context.Context, cycle report.Cycle) error {
	return w.deliver(ctx, "cycle", cycle)
}

func (w *Webhook) SendEvent(ctx context.Context, ev report.Event) error {
	return w.deliver(ctx, "event", ev)
}

func (w *Webhook) Close() error { return nil }

// statusError is a non-2xx answer.
type statusError struct {
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (e *statusError) transient() bool {
	return e.code == http.StatusRequestTimeout || e.code == http.StatusTooManyRequests || e.code >= 500
}

func (w *Webhook) deliver(ctx context.Context, kind string, data any) error {
	body, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	id := report.NewID()

	wait := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.post(ctx, id, kind, body)
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			return fmt.Errorf("webhook: rejected: %w", err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("webhook: %w", ctx.Err())
		}
		if attempt > w.retries {
			return fmt.Errorf("webhook: giving up after %d attempts: %w", attempt, err)
		}

		delay := wait
		if se != nil && se.retryAfter > 0 {
			delay = se.retryAfter
		}
		w.logger.Warn("webhook: delivery failed", "delivery", id, "attempt", attempt, "retry_in", delay, "error", err)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("webhook: %w", ctx.Err())
		case <-t.C:
		}
		wait *= 2
	}
}

func (w *Webhook) post(ctx context.Context, id, kind string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDelivery, id)
	req.Header.Set(HeaderKind, kind)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &statusError{code: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates
// and garbage read as zero.
func parseRetryAfter(v string) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return min(time.Duration(n)*time.Second, maxRetryAfter)
}
