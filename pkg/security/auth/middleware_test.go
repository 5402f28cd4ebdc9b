package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/warden/pkg/config"
)

var defaultSources = []config.APIKeySource{
	{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	{Type: "header", Name: "X-API-Key"},
	{Type: "query", Name: "api_key"},
}

func newTestMiddleware() *APIKeyMiddleware {
	v := NewAPIKeyValidator([]*KeyInfo{
		{Key: "sk-valid", Name: "web", Enabled: true},
		{Key: "sk-disabled", Name: "old", Enabled: false},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAPIKeyMiddleware(v, defaultSources, logger)
}

func TestAPIKeyMiddleware_Handle(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
		wantCode   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer sk-valid") }, http.StatusOK, ""},
		{"bearer lower case scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer sk-valid") }, http.StatusOK, ""},
		{"custom header", func(r *http.Request) { r.Header.Set("X-API-Key", "sk-valid") }, http.StatusOK, ""},
		{"query", func(r *http.Request) { r.URL.RawQuery = "api_key=sk-valid" }, http.StatusOK, ""},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, "missing_api_key"},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic sk-valid") }, http.StatusUnauthorized, "missing_api_key"},
		{"unknown", func(r *http.Request) { r.Header.Set("X-API-Key", "sk-nope") }, http.StatusUnauthorized, "invalid_api_key"},
		{"disabled", func(r *http.Request) { r.Header.Set("X-API-Key", "sk-disabled") }, http.StatusUnauthorized, "invalid_api_key"},
	}

	mw := newTestMiddleware()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			handler := mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if info, ok := KeyInfoFromContext(r.Context()); ok {
					gotName = info.Name
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/chat/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotName != "web" {
					t.Errorf("key name in context = %q", gotName)
				}
				return
			}

			var body struct {
				Error struct {
					Message string `json:"message"`
					Type    string `json:"type"`
					Code    string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body.Error.Type != "authentication_error" || body.Error.Code != tt.wantCode {
				t.Errorf("error body = %+v", body.Error)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestKeyInfoFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := KeyInfoFromContext(req.Context()); ok {
		t.Error("expected no key info")
	}
}
