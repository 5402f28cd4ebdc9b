package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/proxy/types"
)

// APIKeyMiddleware authenticates requests with an API key.
type APIKeyMiddleware struct {
	store   KeyStore
	sources []config.APIKeySource
	logger  *slog.Logger
}

// NewAPIKeyMiddleware creates the middleware. Sources are tried in order.
func NewAPIKeyMiddleware(store KeyStore, sources []config.APIKeySource, logger *slog.Logger) *APIKeyMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyMiddleware{
		store:   store,
		sources: sources,
		logger:  logger.With("component", "auth"),
	}
}

// Handle wraps next with authentication. Rejected requests get a 401 with
// a JSON error body.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.store.Validate(m.extractAPIKey(r))
		if err != nil {
			m.logger.WarnContext(r.Context(), "request rejected",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeUnauthorized(w, err)
			return
		}

		m.logger.DebugContext(r.Context(), "API key authenticated",
			"key_name", info.Name,
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(WithKeyInfo(r.Context(), info)))
	})
}

func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) string {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value
			}
			// Scheme names are case-insensitive.
			prefix := source.Scheme + " "
			if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
				return strings.TrimSpace(value[len(prefix):])
			}
		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value
			}
		}
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	code := types.CodeInvalidAPIKey
	if errors.Is(err, ErrMissingKey) {
		code = types.CodeMissingAPIKey
	}
	body := types.NewErrorResponse("Missing or invalid API key", types.ErrorTypeAuthentication, code)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="warden"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}

type contextKey string

// #nosec G101 - context key, not a credential
const keyInfoKey contextKey = "api_key_info"

// WithKeyInfo stores the authenticated key in ctx.
func WithKeyInfo(ctx context.Context, info *KeyInfo) context.Context {
	return context.WithValue(ctx, keyInfoKey, info)
}

// KeyInfoFromContext retrieves the authenticated key.
func KeyInfoFromContext(ctx context.Context) (*KeyInfo, bool) {
	info, ok := ctx.Value(keyInfoKey).(*KeyInfo)
	return info, ok
}
