package providers

import (
	"context"
	"net/http"
	"time"
)

// DefaultHealthCheckInterval is used when HealthCheckInterval is zero.
const DefaultHealthCheckInterval = 30 * time.Second

// HealthProbe is the request a health check sends.
type HealthProbe struct {
	Path    string
	Headers map[string]string
}

// StartHealthChecker runs periodic probes until ctx is done or Close is
// called. While unhealthy the interval backs off up to 5 minutes.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context, probe HealthProbe) {
	p.healthMu.Lock()
	if p.started {
		p.healthMu.Unlock()
		return
	}
	p.started = true
	p.healthMu.Unlock()

	go p.runHealthChecker(ctx, probe)
}

func (p *HTTPProvider) runHealthChecker(ctx context.Context, probe HealthProbe) {
	defer close(p.stoppedCh)

	interval := p.config.HealthCheckInterval
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("health checker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			start := time.Now()
			err := p.Probe(checkCtx, probe)
			cancel()

			if err != nil {
				p.logger.Error("health check failed", "error", err, "latency", time.Since(start))
			} else {
				p.logger.Debug("health check passed", "latency", time.Since(start))
			}

			health := p.GetHealth()
			if health.IsHealthy {
				ticker.Reset(interval)
			} else {
				ticker.Reset(calculateBackoff(health.ConsecutiveFailures, interval))
			}
		}
	}
}

// Probe performs one GET against BaseURL+probe.Path. The request is not
// retried, so a single failure counts once against the health record.
func (p *HTTPProvider) Probe(ctx context.Context, probe HealthProbe) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+probe.Path, nil)
	if err != nil {
		return err
	}
	for k, v := range probe.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return &ProviderError{Provider: p.config.Name, Message: "health probe failed", Cause: err}
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err := &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: "health probe returned error status"}
		p.updateHealth(false, err)
		return err
	}
	p.updateHealth(true, nil)
	return nil
}

// calculateBackoff multiplies base by 2^failures, capped at 10x and at five
// minutes.
func calculateBackoff(consecutiveFailures int, base time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return base
	}
	multiplier := 1 << uint(min(consecutiveFailures, 4))
	if multiplier > 10 {
		multiplier = 10
	}
	backoff := base * time.Duration(multiplier)
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}
