package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/providers"
)

// Manager owns a set of named providers. It is safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	providers   map[string]providers.Provider
	healthCheck bool
	logger      *slog.Logger
	base        *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewManager creates an empty manager. With healthCheck set, every added
// provider runs a background health checker.
func NewManager(healthCheck bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		providers:   make(map[string]providers.Provider),
		healthCheck: healthCheck,
		logger:      logger.With("component", "providerfactory"),
		base:        logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// AddProvider creates a provider from config, replacing and closing any
// provider already registered under the same name.
func (m *Manager) AddProvider(config providers.ProviderConfig) error {
	var (
		p   providers.Provider
		err error
	)
	if m.healthCheck {
		p, err = NewProviderWithHealthCheck(m.ctx, config)
	} else {
		p, err = NewProvider(config)
	}
	if err != nil {
		return err
	}
	if l, ok := p.(interface{ SetLogger(*slog.Logger) }); ok {
		l.SetLogger(m.base)
	}
	m.Register(p)
	return nil
}

// Register adds an existing provider under its own name.
func (m *Manager) Register(p providers.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.providers[p.GetName()]; ok {
		m.logger.Warn("replacing existing provider", "name", p.GetName())
		_ = existing.Close()
	}
	m.providers[p.GetName()] = p
	m.logger.Info("provider registered",
		"name", p.GetName(),
		"type", p.GetType(),
		"total_providers", len(m.providers),
	)
}

// LoadFromConfig adds every configuration, collecting failures.
func (m *Manager) LoadFromConfig(configs []providers.ProviderConfig) error {
	var errs []error
	for _, c := range configs {
		if err := m.AddProvider(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetProvider returns the provider registered as name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return p, nil
}

// GetProviderNames returns the registered names in sorted order.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthSummary is an overview of provider health.
type HealthSummary struct {
	Total     int
	Healthy   int
	Unhealthy int
	Details   map[string]providers.ProviderHealth
}

// GetHealthSummary reports health for every provider.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := HealthSummary{Total: len(m.providers), Details: make(map[string]providers.ProviderHealth, len(m.providers))}
	for name, p := range m.providers {
		h := p.GetHealth()
		s.Details[name] = h
		if h.IsHealthy {
			s.Healthy++
		}
	}
	s.Unhealthy = s.Total - s.Healthy
	return s
}

// Check returns an error naming every unhealthy provider. It is used as a
// readiness check.
func (m *Manager) Check(ctx context.Context) error {
	s := m.GetHealthSummary()
	if s.Unhealthy == 0 {
		return nil
	}
	var names []string
	for name, h := range s.Details {
		if !h.IsHealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return fmt.Errorf("unhealthy providers: %v", names)
}

// Close stops health checkers and closes every provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	var errs []error
	for name, p := range m.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]providers.Provider)
	return errors.Join(errs...)
}
