package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder receives one observation per request. The metrics collector
// implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware records requests under a fixed route label. Wrap each
// route separately so that path parameters never become label values.
func MetricsMiddleware(recorder HTTPRecorder, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			recorder.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
