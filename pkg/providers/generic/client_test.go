package generic

import (
	"context"
	"testing"

	testhelpers "mercator-hq/warden/internal/providers"
	"mercator-hq/warden/pkg/providers"
)

func TestGenericProvider_NoAPIKey(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("local reply", "llama3"),
	})

	p, err := NewProvider(providers.ProviderConfig{Name: "ollama", BaseURL: mock.URL() + "/"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	if p.GetType() != "generic" {
		t.Errorf("expected generic type, got %q", p.GetType())
	}
	if p.GetConfig().MaxRetries != 1 {
		t.Errorf("expected 1 retry by default, got %d", p.GetConfig().MaxRetries)
	}

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "llama3",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if resp.Content != "local reply" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if got := mock.Requests()[0].Headers.Get("Authorization"); got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestGenericProvider_RequiresBaseURL(t *testing.T) {
	if _, err := NewProvider(providers.ProviderConfig{Name: "ollama"}); err == nil {
		t.Error("expected error without base URL")
	}
}
