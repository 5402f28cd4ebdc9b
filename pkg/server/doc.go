// Package server assembles the gateway from a validated configuration and
// manages its lifecycle.
//
// New builds, in order: the logger, tracer and metrics collector; the
// storage backend; the provider manager with the agent and classifier
// completion services; the rule source; the policy engine, notifier and
// gate; and finally the conversation orchestrator. Routes are:
//
//	POST /api/chat/   one conversation turn (auth, timeout and metrics applied)
//	GET  /health      liveness
//	GET  /ready       readiness: storage is critical, providers are not
//	GET  /version     build information
//	GET  /metrics     Prometheus exposition when metrics are enabled
//
// Every route runs behind panic recovery, request IDs, tracing, access
// logging and CORS.
//
// Basic usage:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and shutdown completes
package server
