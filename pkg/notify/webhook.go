package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	// URL receives a JSON POST per alert.
	URL string

	// Headers are added to every request (e.g. an Authorization token).
	Headers map[string]string

	// Timeout bounds each attempt. Defaults to 5s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt on
	// network errors and 5xx responses.
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles per retry.
	// Defaults to 200ms.
	Backoff time.Duration
}

// WebhookError reports a delivery that failed after all attempts.
type WebhookError struct {
	URL        string
	StatusCode int
	Attempts   int
	Cause      error
}

// Error returns the error message.
func (e *WebhookError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("webhook %s returned status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("webhook %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *WebhookError) Unwrap() error {
	return e.Cause
}

// WebhookNotifier posts alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	config WebhookConfig
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(cfg WebhookConfig, logger *slog.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "notify.webhook"),
	}, nil
}

// Notify posts alert to the webhook, retrying transient failures.
func (w *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	var lastErr error
	var lastStatus int
	attempts := 0

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return &WebhookError{URL: w.config.URL, Attempts: attempts, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}
		attempts++

		status, err := w.post(ctx, body)
		if err == nil && status >= 200 && status < 300 {
			w.logger.Debug("alert delivered", "status", status, "attempt", attempts)
			return nil
		}

		lastErr, lastStatus = err, status
		if err == nil && status < 500 {
			// Client errors are not retried.
			break
		}
		w.logger.Warn("alert delivery failed, will retry",
			"attempt", attempts,
			"status", status,
			"error", err,
		)
	}

	return &WebhookError{
		URL:        w.config.URL,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Cause:      lastErr,
	}
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
