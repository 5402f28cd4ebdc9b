// Package anthropic implements providers.Provider for the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"net/http"
	"strings"

	"mercator-hq/warden/pkg/providers"
)

const (
	// DefaultBaseURL is used when the configuration leaves BaseURL empty.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is the API version header value.
	DefaultAnthropicVersion = "2023-06-01"
)

// Provider is the Anthropic adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider validates config and creates the adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "anthropic", Field: "name", Message: "provider name is required"}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "api_key", Message: "API key is required for Anthropic"}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.Type = "anthropic"
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.Logger().Info("Anthropic provider initialized", "base_url", config.BaseURL)
	return p, nil
}

// SendCompletion posts to /v1/messages.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if req == nil {
		return nil, &providers.ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if req.Model == "" {
		return nil, &providers.ValidationError{Field: "model", Message: "model is required"}
	}

	body, err := transformRequest(req)
	if err != nil {
		return nil, err
	}

	var out AnthropicResponse
	url := p.GetConfig().BaseURL + "/v1/messages"
	if err := p.DoJSONRequest(ctx, http.MethodPost, url, body, &out, p.headers()); err != nil {
		return nil, err
	}

	resp := transformResponse(&out)
	p.Logger().Debug("completion request succeeded",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// HealthCheck lists models as a cheap authenticated probe.
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.Probe(ctx, p.HealthProbe())
}

// HealthProbe returns the probe used by HealthCheck and the background
// checker.
func (p *Provider) HealthProbe() providers.HealthProbe {
	return providers.HealthProbe{Path: "/v1/models", Headers: p.headers()}
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.GetConfig().APIKey,
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
	}
}
