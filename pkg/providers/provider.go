// Package providers abstracts the LLM backends Warden talks to.
//
// A Provider accepts a provider-agnostic CompletionRequest, translates it to
// the backend's wire format, and normalises the reply into a
// CompletionResponse. HTTPProvider carries the shared connection pool,
// retry policy, and health tracking; the openai, generic, and anthropic
// subpackages embed it.
//
// Retry policy: network errors and 5xx responses are retried with
// exponential backoff (1s, 2s, 4s, ...). 400, 401, 403, and 429 are
// returned immediately as typed errors. Context cancellation ends the loop
// with a TimeoutError.
package providers

import "context"

// Provider is implemented by every LLM adapter.
//
// All methods that take a context must return promptly once it is done.
type Provider interface {
	// SendCompletion sends a single, non-streaming completion request.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck probes the backend once.
	HealthCheck(ctx context.Context) error

	// GetName returns the configured provider name.
	GetName() string

	// GetType returns the adapter type ("openai", "generic", "anthropic").
	GetType() string

	// GetConfig returns the provider configuration.
	GetConfig() ProviderConfig

	// IsHealthy reports the health tracked from recent requests and checks.
	IsHealthy() bool

	// GetHealth returns the detailed health record.
	GetHealth() ProviderHealth

	// Close releases pooled connections and stops background checks.
	Close() error
}
