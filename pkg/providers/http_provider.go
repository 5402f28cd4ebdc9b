package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mercator-hq/warden/pkg/telemetry/tracing"
)

// unhealthyThreshold is the number of consecutive failures after which a
// provider is reported unhealthy.
const unhealthyThreshold = 3

// HTTPProvider is the shared base of the HTTP adapters. It owns a pooled
// client, the retry loop, and the health record.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
	logger *slog.Logger

	healthMu sync.RWMutex
	health   ProviderHealth

	// backoff returns the delay before retry n (n >= 1).
	backoff func(n int) time.Duration

	closeOnce sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
	started   bool
}

// NewHTTPProvider creates the base provider.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	now := time.Now()
	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport, Timeout: config.Timeout},
		logger: slog.Default().With("component", "providers", "provider", config.Name),
		health: ProviderHealth{
			IsHealthy:             true,
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
		backoff:   exponentialBackoff,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// exponentialBackoff waits 2^(n-1) seconds before retry n.
func exponentialBackoff(n int) time.Duration {
	return time.Duration(1<<uint(n-1)) * time.Second
}

// SetBackoff overrides the retry delay function. Intended for tests.
func (p *HTTPProvider) SetBackoff(fn func(n int) time.Duration) {
	if fn != nil {
		p.backoff = fn
	}
}

// SetLogger replaces the provider logger.
func (p *HTTPProvider) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger.With("component", "providers", "provider", p.config.Name)
	}
}

// Logger returns the provider logger.
func (p *HTTPProvider) Logger() *slog.Logger {
	return p.logger
}

// GetName returns the configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the configured type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// IsHealthy reports the current health.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns a copy of the health record.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

func (p *HTTPProvider) updateHealth(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()
	if success {
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = p.health.LastCheck
		return
	}

	p.health.ConsecutiveFailures++
	p.health.LastError = err
	if p.health.ConsecutiveFailures >= unhealthyThreshold && p.health.IsHealthy {
		p.health.IsHealthy = false
		p.logger.Warn("provider marked unhealthy",
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

func (p *HTTPProvider) recordRequest(success bool) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	if !success {
		p.health.FailedRequests++
	}
}

// DoRequest sends an HTTP request, retrying network errors and 5xx responses.
// The caller must close the body of a successful response.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt)
			p.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", delay,
			)
			select {
			case <-ctx.Done():
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		tracing.Inject(ctx, req.Header)
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.client.Do(req)
		if err != nil {
			p.recordRequest(false)
			if ctx.Err() != nil {
				p.updateHealth(false, err)
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			}
			lastErr = &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
			p.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.recordRequest(true)
			p.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		p.recordRequest(false)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			err := &AuthError{Provider: p.config.Name, Message: string(errorBody)}
			p.updateHealth(false, err)
			return nil, err

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest:
			return nil, &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
		}

		lastErr = &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
		p.logger.Warn("request returned error status, will retry",
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	p.updateHealth(false, lastErr)
	return nil, lastErr
}

// DoJSONRequest marshals reqBody, sends it with DoRequest, and decodes the
// reply into respBody.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, payload, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if respBody == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return &ParseError{
			Provider:    p.config.Name,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

// Close stops the background health checker, if running, and drops idle
// connections. It is safe to call more than once.
func (p *HTTPProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopCh)
		p.healthMu.RLock()
		started := p.started
		p.healthMu.RUnlock()
		if started {
			select {
			case <-p.stoppedCh:
			case <-time.After(5 * time.Second):
				p.logger.Warn("health checker did not stop in time")
			}
		}
		p.client.CloseIdleConnections()
		p.logger.Debug("provider closed")
	})
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
