package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks HTTP requests and conversation turns.
type RequestMetrics struct {
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg Config, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"method", "route"},
		),

		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chat_turns_total",
				Help:      "Total number of conversation turns by outcome",
			},
			[]string{"outcome"},
		),

		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chat_turn_duration_seconds",
				Help:      "Duration of conversation turns in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		rm.httpTotal,
		rm.httpDuration,
		rm.turnsTotal,
		rm.turnDuration,
	)

	return rm
}

// RecordHTTP records one served request.
func (rm *RequestMetrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	rm.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	rm.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordTurn records one turn.
func (rm *RequestMetrics) RecordTurn(outcome string, elapsed time.Duration) {
	rm.turnsTotal.WithLabelValues(outcome).Inc()
	rm.turnDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
