// Package health serves the liveness and readiness probes.
//
//   - GET /health: the process is up; never consults dependencies.
//   - GET /ready: every registered check passes. A failing critical check
//     (the conversation store) reports "not_ready" with 503; a failing
//     non-critical check (a model provider) reports "degraded" with 200,
//     since policy and history reads keep working.
//   - GET /version: build information.
//
// Checks run concurrently, each bounded by the checker timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("storage", true, store.Ping)
//	checker.Register("providers", false, manager.Check)
//	health.Mount(mux, checker, health.VersionInfo{Version: version})
package health
