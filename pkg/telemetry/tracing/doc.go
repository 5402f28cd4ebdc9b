// Package tracing configures OpenTelemetry tracing for the gateway.
//
// New installs a global tracer provider exporting over OTLP/gRPC and a W3C
// Trace Context propagator. When tracing is disabled a no-op tracer is
// returned, so callers never branch on whether tracing is on:
//
//	tr, err := tracing.New(tracing.Config{
//		Enabled:     true,
//		Endpoint:    "localhost:4317",
//		Insecure:    true,
//		Sampler:     tracing.SamplerRatio,
//		SampleRatio: 0.1,
//	})
//	if err != nil {
//		return err
//	}
//	defer tr.Shutdown(context.Background())
//
//	ctx, span := tr.Start(ctx, "chat.respond")
//	defer span.End()
//
// Span names used by the gateway: http.request, chat.respond,
// policy.decide, completion.complete. Attribute keys live under the
// "warden." namespace (see attributes.go).
//
// # Sampling
//
// Samplers are "always", "never", and "ratio", each wrapped in ParentBased
// so an incoming sampled traceparent keeps the whole trace sampled.
package tracing
