package providers

import "time"

// Message is one entry of a provider conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Name optionally identifies the author within a role.
	Name string `json:"name,omitempty"`
}

// TokenUsage reports token consumption for one request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is the provider-agnostic request.
type CompletionRequest struct {
	// Model is the backend model identifier.
	Model string `json:"model"`

	// Messages is the full prompt, oldest first.
	Messages []Message `json:"messages"`

	// Temperature controls sampling randomness. Zero leaves the backend default.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the generated tokens. Zero leaves the backend default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP enables nucleus sampling when non-zero.
	TopP float64 `json:"top_p,omitempty"`

	// Stop lists sequences that end generation.
	Stop []string `json:"stop,omitempty"`

	// User is forwarded to backends that support abuse attribution.
	User string `json:"user,omitempty"`

	// Metadata is kept locally and never sent.
	Metadata map[string]string `json:"-"`
}

// CompletionResponse is the normalised reply.
type CompletionResponse struct {
	ID           string            `json:"id"`
	Model        string            `json:"model"`
	Content      string            `json:"content"`
	FinishReason string            `json:"finish_reason"`
	Usage        TokenUsage        `json:"usage"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ProviderHealth is the health record kept by HTTPProvider.
type ProviderHealth struct {
	IsHealthy             bool
	LastCheck             time.Time
	LastError             error
	ConsecutiveFailures   int
	LastSuccessfulRequest time.Time
	TotalRequests         int64
	FailedRequests        int64
}

// ProviderConfig configures one provider instance.
type ProviderConfig struct {
	// Name identifies the provider in logs and metrics.
	Name string

	// Type selects the adapter: "openai", "generic", or "anthropic".
	Type string

	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// APIKey authenticates requests. Optional for generic backends.
	APIKey string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// HealthCheckInterval is the period of background health checks.
	HealthCheckInterval time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Normalised finish reasons.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)
