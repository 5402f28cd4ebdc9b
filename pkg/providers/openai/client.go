// Package openai implements providers.Provider for the OpenAI chat
// completions API.
//
//	p, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	})
//	resp, err := p.SendCompletion(ctx, &providers.CompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hello"}},
//	})
package openai

import (
	"context"
	"net/http"
	"strings"

	"mercator-hq/warden/pkg/providers"
)

// DefaultBaseURL is used when the configuration leaves BaseURL empty.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is the OpenAI adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider validates config and creates the adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "openai", Field: "name", Message: "provider name is required"}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "api_key", Message: "API key is required for OpenAI"}
	}
	return newProvider(config), nil
}

// newProvider applies defaults without validating the API key. The generic
// adapter uses it for key-less backends.
func newProvider(config providers.ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Type == "" {
		config.Type = "openai"
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.Logger().Info("OpenAI-compatible provider initialized", "base_url", config.BaseURL)
	return p
}

// NewCompatible creates an OpenAI-format adapter whose API key is optional.
func NewCompatible(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: config.Type, Field: "name", Message: "provider name is required"}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}
	return newProvider(config), nil
}

// SendCompletion posts to /chat/completions.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var out OpenAIResponse
	url := p.GetConfig().BaseURL + "/chat/completions"
	if err := p.DoJSONRequest(ctx, http.MethodPost, url, transformRequest(req), &out, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&out)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Cause: err}
	}

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
	return providers.HealthProbe{Path: "/models", Headers: p.headers()}
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if key := p.GetConfig().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}

func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return &providers.ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if req.Model == "" {
		return &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}
