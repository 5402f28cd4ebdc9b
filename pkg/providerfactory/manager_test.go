package providerfactory

import (
	"context"
	"testing"

	"mercator-hq/warden/pkg/providers"
)

func testConfigs() []providers.ProviderConfig {
	return []providers.ProviderConfig{
		{Name: "openai", Type: "openai", APIKey: "k"},
		{Name: "local", Type: "generic", BaseURL: "http://localhost:11434/v1"},
	}
}

func TestManager_LoadAndGet(t *testing.T) {
	m := NewManager(false, nil)
	defer m.Close()

	if err := m.LoadFromConfig(testConfigs()); err != nil {
		t.Fatalf("LoadFromConfig failed: %v", err)
	}

	names := m.GetProviderNames()
	if len(names) != 2 || names[0] != "local" || names[1] != "openai" {
		t.Errorf("unexpected names %v", names)
	}

	p, err := m.GetProvider("local")
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if p.GetType() != "generic" {
		t.Errorf("expected generic, got %q", p.GetType())
	}

	if _, err := m.GetProvider("missing"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestManager_LoadFromConfig_CollectsErrors(t *testing.T) {
	m := NewManager(false, nil)
	defer m.Close()

	configs := append(testConfigs(), providers.ProviderConfig{Name: "bad", Type: "nope"})
	if err := m.LoadFromConfig(configs); err == nil {
		t.Fatal("expected error")
	}
	if len(m.GetProviderNames()) != 2 {
		t.Error("valid providers should still be registered")
	}
}

func TestManager_ReplaceProvider(t *testing.T) {
	m := NewManager(false, nil)
	defer m.Close()

	if err := m.AddProvider(providers.ProviderConfig{Name: "local", Type: "generic", BaseURL: "http://a"}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddProvider(providers.ProviderConfig{Name: "local", Type: "generic", BaseURL: "http://b"}); err != nil {
		t.Fatal(err)
	}
	p, _ := m.GetProvider("local")
	if p.GetConfig().BaseURL != "http://b" {
		t.Errorf("expected replacement, got %q", p.GetConfig().BaseURL)
	}
}

func TestManager_HealthSummaryAndCheck(t *testing.T) {
	m := NewManager(false, nil)
	defer m.Close()
	if err := m.LoadFromConfig(testConfigs()); err != nil {
		t.Fatal(err)
	}

	s := m.GetHealthSummary()
	if s.Total != 2 || s.Healthy != 2 || s.Unhealthy != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if err := m.Check(context.Background()); err != nil {
		t.Errorf("expected healthy check, got %v", err)
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager(true, nil)
	if err := m.LoadFromConfig(testConfigs()); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(m.GetProviderNames()) != 0 {
		t.Error("expected no providers after Close")
	}
}
