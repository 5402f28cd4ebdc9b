// Package providerfactory builds provider adapters from configuration and
// keeps the named set used by the completion services.
package providerfactory

import (
	"context"
	"fmt"

	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/providers/anthropic"
	"mercator-hq/warden/pkg/providers/generic"
	"mercator-hq/warden/pkg/providers/openai"
)

// healthChecked is implemented by the HTTP adapters.
type healthChecked interface {
	StartHealthChecker(ctx context.Context, probe providers.HealthProbe)
	HealthProbe() providers.HealthProbe
}

// NewProvider creates the adapter named by config.Type. An empty type is
// inferred from the provider name.
func NewProvider(config providers.ProviderConfig) (providers.Provider, error) {
	if config.Type == "" {
		config.Type = inferProviderType(config.Name)
	}

	switch config.Type {
	case "openai":
		p, err := openai.NewProvider(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
		}
		return p, nil
	case "anthropic":
		p, err := anthropic.NewProvider(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
		}
		return p, nil
	case "generic":
		p, err := generic.NewProvider(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
		}
		return p, nil
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type %q (supported: openai, anthropic, generic)", config.Type),
		}
	}
}

// NewProviderWithHealthCheck creates a provider and starts its background
// health checker, which stops when ctx is cancelled or the provider closes.
func NewProviderWithHealthCheck(ctx context.Context, config providers.ProviderConfig) (providers.Provider, error) {
	p, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	if hc, ok := p.(healthChecked); ok {
		hc.StartHealthChecker(ctx, hc.HealthProbe())
	}
	return p, nil
}

func inferProviderType(name string) string {
	switch name {
	case "openai":
		return "openai"
	case "anthropic":
		return "anthropic"
	default:
		return "generic"
	}
}
