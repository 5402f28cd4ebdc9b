// Package metrics exposes Prometheus metrics for the chat gateway.
//
// # Metrics
//
//   - HTTP: warden_http_requests_total, warden_http_request_duration_seconds
//   - Turns: warden_chat_turns_total, warden_chat_turn_duration_seconds
//   - Policy: warden_policy_decisions_total, warden_policy_decision_duration_seconds
//   - Completion: warden_completion_requests_total, warden_completion_duration_seconds
//   - Providers: warden_provider_health
//   - Notifications: warden_notifications_total
//
// A single Collector implements the recorder interfaces of the policy
// engine, the completion service, and the orchestrator, so one value is
// injected everywhere:
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//	eng := engine.New(rules, classifier, cfg, engine.WithRecorder(collector))
//	mux.Handle("/metrics", collector.Handler())
//
// Label values come from small closed sets (actions, sources, outcomes,
// configured service and provider names). Conversation identifiers are
// never used as labels.
package metrics
