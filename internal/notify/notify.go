// Package notify posts job status change events to an operator webhook.
// Notification failures are logged and never affect pipeline outcomes.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/state"
)

// Event is the webhook payload for one status change.
type Event struct {
	JobID        uuid.UUID    `json:"job_id"`
	Status       state.Status `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// Notifier delivers status change events.
type Notifier interface {
	StatusChanged(ctx context.Context, event Event)
}

// Nop drops all events. Used when no webhook is configured.
type Nop struct{}

func (Nop) StatusChanged(context.Context, Event) {}

// Webhook posts events as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewWebhook(url string, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// New returns a Webhook when url is non-empty, Nop otherwise.
func New(url string, logger *zap.Logger) Notifier {
	if url == "" {
		return Nop{}
	}
	return NewWebhook(url, logger)
}

func (w *Webhook) StatusChanged(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to encode webhook event", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed",
			zap.String("job_id", event.JobID.String()),
			zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Warn("webhook rejected event",
			zap.String("job_id", event.JobID.String()),
			zap.Int("status_code", resp.StatusCode))
	}
}
