// Package notifier reports deployment results to evaluation endpoints with
// bounded retries.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pagesmith/pagesmith/internal/core/domain"
)

// Config holds notifier configuration.
type Config struct {
	// AttemptTimeout caps each individual delivery attempt.
	AttemptTimeout time.Duration

	// MaxAttempts bounds the total number of deliveries per notification.
	MaxAttempts int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: 30 * time.Second,
		MaxAttempts:    domain.MaxNotifyAttempts,
	}
}

// Notifier POSTs evaluation payloads to callback URLs. Delivery is
// best-effort: failures are retried with exponential backoff and the final
// verdict is reported as a boolean, never as an error.
type Notifier struct {
	client *http.Client
	config Config
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a notifier.
func New(config Config, logger *slog.Logger) *Notifier {
	if config.AttemptTimeout == 0 {
		config.AttemptTimeout = 30 * time.Second
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = domain.MaxNotifyAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		client: &http.Client{Timeout: config.AttemptTimeout},
		config: config,
		logger: logger.With("component", "notifier"),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Notify delivers the payload to url, retrying on failure with delays of
// 1, 2, 4, 8 and 16 seconds between attempts. Only an HTTP 200 response
// acknowledges delivery. Returns true once acknowledged, false when the
// attempt budget is exhausted or the context is cancelled.
func (n *Notifier) Notify(ctx context.Context, url string, payload domain.EvaluationPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("encode notification payload", "url", url, "error", err)
		return false
	}

	for attempt := 1; attempt <= n.config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			n.logger.Warn("notification abandoned", "url", url, "attempt", attempt)
			return false
		}

		if n.deliver(ctx, url, body, attempt) {
			n.logger.Info("notification delivered", "url", url, "attempt", attempt)
			return true
		}

		if attempt < n.config.MaxAttempts {
			n.sleep(ctx, domain.NotifyDelay(attempt))
		}
	}

	n.logger.Error("notification failed", "url", url, "attempts", n.config.MaxAttempts)
	return false
}

// deliver performs one POST. Any transport error or non-200 status counts
// as a failed attempt.
func (n *Notifier) deliver(ctx context.Context, url string, body []byte, attempt int) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("build notification request", "url", url, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification attempt failed", "url", url, "attempt", attempt, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn("notification rejected", "url", url, "attempt", attempt, "status", resp.StatusCode)
		return false
	}
	return true
}
