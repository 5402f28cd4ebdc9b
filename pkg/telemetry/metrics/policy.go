package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy verdicts and the alerts they raise.
//
// Metrics:
//   - warden_policy_decisions_total: verdicts by action and source
//   - warden_policy_decision_duration_seconds: decision latency by source
//   - warden_notifications_total: alert deliveries by outcome
type PolicyMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec

	notificationsTotal *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics.
func NewPolicyMetrics(cfg Config, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decisions_total",
				Help:      "Total number of policy decisions",
			},
			[]string{"verdict", "source"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decision_duration_seconds",
				Help:      "Duration of policy decisions in seconds",
				// Pattern decisions take microseconds, fallback decisions
				// take a model round trip.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // 10µs to ~42s
			},
			[]string{"source"},
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "notifications_total",
				Help:      "Total number of alert deliveries",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		pm.decisionsTotal,
		pm.decisionDuration,
		pm.notificationsTotal,
	)

	return pm
}

// RecordDecision records one verdict.
func (pm *PolicyMetrics) RecordDecision(action, source string, elapsed time.Duration) {
	pm.decisionsTotal.WithLabelValues(action, source).Inc()
	pm.decisionDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordNotification records one alert delivery ("sent" or "failed").
func (pm *PolicyMetrics) RecordNotification(outcome string) {
	pm.notificationsTotal.WithLabelValues(outcome).Inc()
}
