// Package middleware provides the HTTP middleware of the chat API.
//
// The server assembles them outermost first:
//
//	handler = middleware.Chain(mux,
//		middleware.RecoveryMiddleware(logger),
//		middleware.RequestIDMiddleware,
//		middleware.LoggingMiddleware(logger),
//		middleware.CORSMiddleware(cfg.Server.CORS),
//	)
//
// The chat route is additionally wrapped with MetricsMiddleware,
// TimeoutMiddleware, and, when enabled, API key authentication.
//
// RequestIDMiddleware stores the request ID with logging.WithRequestID, so
// every record logged with the request context carries request_id.
package middleware
