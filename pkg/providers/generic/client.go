// Package generic adapts OpenAI-compatible servers such as Ollama, vLLM, or
// LM Studio. The API key is optional and a base URL is required.
package generic

import (
	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/providers/openai"
)

// Provider is an OpenAI-format adapter for self-hosted backends.
type Provider struct {
	*openai.Provider
}

// NewProvider creates the adapter. Local backends rarely need retries, so
// MaxRetries defaults to 1.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 1
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 5
	}
	config.Type = "generic"

	p, err := openai.NewCompatible(config)
	if err != nil {
		return nil, err
	}
	return &Provider{Provider: p}, nil
}

// GetType returns "generic".
func (p *Provider) GetType() string {
	return "generic"
}
