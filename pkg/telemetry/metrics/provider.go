package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks completion calls and provider health.
//
// Metrics:
//   - warden_completion_requests_total: calls by service and outcome
//   - warden_completion_duration_seconds: call latency by service
//   - warden_provider_health: provider health status (1=healthy, 0=unhealthy)
type ProviderMetrics struct {
	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	health *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(cfg Config, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "completion_requests_total",
				Help:      "Total number of completion calls",
			},
			[]string{"service", "outcome"},
		),

		completionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "completion_duration_seconds",
				Help:      "Duration of completion calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"service"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.completionsTotal,
		pm.completionDuration,
		pm.health,
	)

	return pm
}

// RecordCompletion records one completion call.
func (pm *ProviderMetrics) RecordCompletion(service, outcome string, elapsed time.Duration) {
	pm.completionsTotal.WithLabelValues(service, outcome).Inc()
	pm.completionDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// UpdateHealth sets the health gauge of a provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}
