package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(url string, retries int) *HTTPProvider {
	p := NewHTTPProvider(ProviderConfig{
		Name:       "test-provider",
		Type:       "openai",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	p.SetBackoff(func(int) time.Duration { return time.Millisecond })
	return p
}

func TestHTTPProvider_RetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 3)
	resp, err := p.DoRequest(context.Background(), http.MethodPost, server.URL+"/x", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if !p.IsHealthy() {
		t.Error("expected provider healthy after success")
	}
	h := p.GetHealth()
	if h.TotalRequests != 3 || h.FailedRequests != 2 {
		t.Errorf("unexpected request counters: %+v", h)
	}
}

func TestHTTPProvider_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	headers := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	p := newTestProvider(server.URL, 0)
	resp, err := p.DoRequest(ctx, http.MethodPost, server.URL+"/x", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := <-headers; got != want {
		t.Errorf("traceparent = %q, want %q", got, want)
	}
}

func TestHTTPProvider_NoRetryOn4xx(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		check      func(error) bool
	}{
		{
			name:       "400 bad request",
			statusCode: http.StatusBadRequest,
			check:      func(err error) bool { var e *ProviderError; return errors.As(err, &e) && e.StatusCode == 400 },
		},
		{
			name:       "401 unauthorized",
			statusCode: http.StatusUnauthorized,
			check:      func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		},
		{
			name:       "403 forbidden",
			statusCode: http.StatusForbidden,
			check:      func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		},
		{
			name:       "429 rate limit",
			statusCode: http.StatusTooManyRequests,
			check: func(err error) bool {
				var e *RateLimitError
				return errors.As(err, &e) && e.RetryAfter == 7*time.Second
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			p := newTestProvider(server.URL, 3)
			_, err := p.DoRequest(context.Background(), http.MethodPost, server.URL, []byte(`{}`), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
			if got := atomic.LoadInt32(&attempts); got != 1 {
				t.Errorf("expected 1 attempt, got %d", got)
			}
		})
	}
}

func TestHTTPProvider_ExhaustedRetriesMarksUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 0)
	for i := 0; i < unhealthyThreshold; i++ {
		_, err := p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected 502 ProviderError, got %v", err)
		}
	}
	if p.IsHealthy() {
		t.Error("expected provider unhealthy after repeated failures")
	}
}

func TestHTTPProvider_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected TimeoutError to wrap the context error")
	}
}

func TestHTTPProvider_DoJSONRequest_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 0)
	var out map[string]any
	err := p.DoJSONRequest(context.Background(), http.MethodPost, server.URL, map[string]string{"a": "b"}, &out, nil)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if pe.RawResponse != "not json" {
		t.Errorf("expected raw response kept, got %q", pe.RawResponse)
	}
}

func TestHTTPProvider_Probe(t *testing.T) {
	var status int32 = http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 0)
	probe := HealthProbe{Path: "/models"}

	if err := p.Probe(context.Background(), probe); err != nil {
		t.Fatalf("expected healthy probe, got %v", err)
	}

	atomic.StoreInt32(&status, http.StatusServiceUnavailable)
	for i := 0; i < unhealthyThreshold; i++ {
		if err := p.Probe(context.Background(), probe); err == nil {
			t.Fatal("expected probe failure")
		}
	}
	if p.IsHealthy() {
		t.Error("expected unhealthy after failed probes")
	}
}

func TestHTTPProvider_CloseIdempotent(t *testing.T) {
	p := newTestProvider("http://127.0.0.1:1", 0)
	p.StartHealthChecker(context.Background(), HealthProbe{})
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 10 * time.Second
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, base},
		{1, 20 * time.Second},
		{2, 40 * time.Second},
		{3, 80 * time.Second},
		{10, 100 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.failures, base); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &ProviderError{StatusCode: 503}, true},
		{"network error", &ProviderError{Cause: errors.New("reset")}, true},
		{"bad request", &ProviderError{StatusCode: 400}, false},
		{"auth", &AuthError{}, false},
		{"rate limit", &RateLimitError{}, true},
		{"timeout", &TimeoutError{}, true},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}
