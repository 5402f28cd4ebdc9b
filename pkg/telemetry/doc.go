// Package telemetry groups the observability layers of Warden.
//
// # Components
//
//   - logging: slog handlers with context fields and PII redaction
//   - metrics: Prometheus collectors for HTTP, turns, policy, providers and
//     notifications
//   - tracing: OpenTelemetry tracer setup, HTTP middleware and span helpers
//   - health: liveness, readiness and version endpoints
//
// Each subpackage is wired by pkg/server; nothing here imports the chat or
// policy packages, so they may all depend on telemetry freely.
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json", RedactPII: true})
//	collector := metrics.NewCollector(metrics.DefaultConfig(), prometheus.NewRegistry())
//	mux.Handle("GET /metrics", collector.Handler())
//
// # PII Protection
//
// Log attributes pass through a redactor before they are written. The
// built-in patterns mask API keys, bearer tokens, email addresses, card
// numbers, phone numbers and passwords among others. Extra patterns come from
// telemetry.logging.redact_patterns.
package telemetry
