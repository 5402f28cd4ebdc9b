package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a Collector.
type Config struct {
	// Enabled turns recording on. A disabled collector still serves an
	// empty registry.
	Enabled bool

	Namespace string
	Subsystem string

	// DurationBuckets are used for the turn and completion histograms.
	DurationBuckets []float64
}

// DefaultConfig returns an enabled configuration with the warden namespace.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "warden",
		// LLM round trips: 100ms to 60s
		DurationBuckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// Collector owns the registry and every metric family.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	requests  *RequestMetrics
	policy    *PolicyMetrics
	providers *ProviderMetrics
}

// NewCollector registers all metric families with registry. A nil registry
// creates a private one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "warden"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		requests:  NewRequestMetrics(cfg, registry),
		policy:    NewPolicyMetrics(cfg, registry),
		providers: NewProviderMetrics(cfg, registry),
	}
}

// RecordHTTPRequest records a served HTTP request. route is the registered
// pattern, not the raw URL.
func (c *Collector) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requests.RecordHTTP(method, route, status, elapsed)
}

// RecordTurn records one conversation turn by outcome.
func (c *Collector) RecordTurn(outcome string, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requests.RecordTurn(outcome, elapsed)
}

// RecordPolicyDecision records a policy verdict and the stage that
// produced it ("pattern" or "fallback").
func (c *Collector) RecordPolicyDecision(action, source string, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.policy.RecordDecision(action, source, elapsed)
}

// RecordNotification records an alert delivery attempt.
func (c *Collector) RecordNotification(outcome string) {
	if !c.config.Enabled {
		return
	}
	c.policy.RecordNotification(outcome)
}

// RecordCompletion records a completion call of a named service.
func (c *Collector) RecordCompletion(service, outcome string, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.providers.RecordCompletion(service, outcome, elapsed)
}

// UpdateProviderHealth sets the health gauge of a provider.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.providers.UpdateHealth(provider, healthy)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
