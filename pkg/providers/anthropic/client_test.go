package anthropic

import (
	"context"
	"errors"
	"testing"

	testhelpers "mercator-hq/warden/internal/providers"
	"mercator-hq/warden/pkg/providers"
)

func TestAnthropicProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockAnthropicResponse("Hello, world!", "claude-3-5-haiku-latest"),
	})

	p, err := NewProvider(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model: "claude-3-5-haiku-latest",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Be brief."},
			{Role: providers.RoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if resp.Content != "Hello, world!" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected stop, got %q", resp.FinishReason)
	}

	var sent AnthropicRequest
	if err := mock.LastRequestJSON(&sent); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	if sent.System != "Be brief." || len(sent.Messages) != 1 || sent.MaxTokens != defaultMaxTokens {
		t.Errorf("unexpected request: %+v", sent)
	}
	headers := mock.Requests()[0].Headers
	if headers.Get("x-api-key") != "test-key" || headers.Get("anthropic-version") != DefaultAnthropicVersion {
		t.Errorf("missing auth headers: %v", headers)
	}
}

func TestTransformRequest_Sequence(t *testing.T) {
	tests := []struct {
		name     string
		messages []providers.Message
		wantErr  bool
	}{
		{
			name: "alternating",
			messages: []providers.Message{
				{Role: "system", Content: "s"},
				{Role: "user", Content: "a"},
				{Role: "assistant", Content: "b"},
				{Role: "user", Content: "c"},
			},
		},
		{
			name:     "assistant first",
			messages: []providers.Message{{Role: "assistant", Content: "b"}},
			wantErr:  true,
		},
		{
			name: "consecutive users",
			messages: []providers.Message{
				{Role: "user", Content: "a"},
				{Role: "user", Content: "b"},
			},
			wantErr: true,
		},
		{
			name:     "only system",
			messages: []providers.Message{{Role: "system", Content: "s"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transformRequest(&providers.CompletionRequest{Model: "m", Messages: tt.messages})
			if tt.wantErr {
				var ve *providers.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("expected ValidationError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewProvider_RequiresKey(t *testing.T) {
	if _, err := NewProvider(providers.ProviderConfig{Name: "anthropic"}); err == nil {
		t.Error("expected error without API key")
	}
}
