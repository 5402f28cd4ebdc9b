package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
		wantErr bool
	}{
		{"debug", true, false},
		{"INFO", false, false},
		{"", false, false},
		{"warning", false, false},
		{"trace", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Level: tt.level, Writer: &buf})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			logger.Debug("probe")
			if got := buf.Len() > 0; got != tt.debugOn {
				t.Errorf("debug output = %v, want %v", got, tt.debugOn)
			}
		})
	}
}

func TestNew_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHandler_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithConversationID(ctx, "conv-7")
	logger.InfoContext(ctx, "turn completed")

	m := decodeLine(t, &buf)
	if m["request_id"] != "req-42" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["conversation_id"] != "conv-7" {
		t.Errorf("conversation_id = %v", m["conversation_id"])
	}
}

func TestHandler_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf, RedactPII: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.With("component", "test").Info("contact jane@example.com",
		"api_key", "sk-live-abcdefghijklmnop",
		"note", "card 4111 1111 1111 1111 on file",
		"ssn", "123-45-6789",
		"err", errors.New("dial 10.1.2.3: refused"),
		"total_tokens", 42,
		slog.Group("req", slog.String("authorization", "Bearer abcdef123456")),
	)

	line := buf.String()
	for _, leaked := range []string{"jane@example.com", "abcdefghijklmnop", "4111 1111", "123-45-6789", "10.1.2.3", "abcdef123456"} {
		if strings.Contains(line, leaked) {
			t.Errorf("log line leaked %q: %s", leaked, line)
		}
	}

	m := decodeLine(t, &buf)
	if m["component"] != "test" {
		t.Errorf("component = %v", m["component"])
	}
	if m["total_tokens"] != float64(42) {
		t.Errorf("total_tokens = %v, want 42", m["total_tokens"])
	}
}

func TestHandler_NoRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("x", "email", "jane@example.com")
	if !strings.Contains(buf.String(), "jane@example.com") {
		t.Error("value redacted although redaction is disabled")
	}
}

func TestRedactor(t *testing.T) {
	r, err := NewRedactor([]Pattern{{Name: "ticket", Pattern: `TCK-\d+`, Replacement: "TCK-***"}})
	if err != nil {
		t.Fatalf("NewRedactor failed: %v", err)
	}

	tests := []struct {
		in, want string
	}{
		{"key sk-abcdefgh12345", "key sk-***"},
		{"Authorization: Bearer tok.en-value", "Authorization: Bearer ***"},
		{"ssn 123-45-6789", "ssn ***-**-****"},
		{"card 4111111111111111", "card ****-****-****-****"},
		{"from 192.168.0.1", "from *.*.*.*"},
		{"call 555-123-4567", "call ***-***-****"},
		{"password=hunter2", "password=***"},
		{"see TCK-1234", "see TCK-***"},
		{"nothing to hide", "nothing to hide"},
	}
	for _, tt := range tests {
		if got := r.RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := NewRedactor([]Pattern{{Name: "bad", Pattern: "[unclosed"}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestRedactor_SensitiveKeys(t *testing.T) {
	r, _ := NewRedactor(nil)
	for key, want := range map[string]bool{
		"api_key":       true,
		"Authorization": true,
		"access_token":  true,
		"token":         true,
		"client_secret": true,
		"total_tokens":  false,
		"digest":        false,
	} {
		if got := r.IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetConversationID(ctx) != "" {
		t.Error("expected empty identifiers")
	}
	ctx = WithRequestID(ctx, "r")
	if GetRequestID(ctx) != "r" {
		t.Error("request id not stored")
	}
}
