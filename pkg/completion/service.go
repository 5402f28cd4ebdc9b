// Package completion produces model replies for a prompt plus the opaque
// context of earlier turns.
//
// A context blob is meaningful only to this package: callers store it next
// to the agent message that produced it and hand it back, unparsed, on the
// next call.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// DefaultTimeout bounds a single Complete call when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Blob is an opaque per-turn context record.
type Blob []byte

// Result is a model reply and the context blob describing the new turn.
type Result struct {
	Text    string
	Context Blob
}

// Service completes a prompt given the context blobs of earlier turns,
// oldest first.
type Service interface {
	Complete(ctx context.Context, prompt string, history []Blob) (*Result, error)
}

// ErrEmptyReply is wrapped by ExecutionError when the model returns only
// whitespace.
var ErrEmptyReply = errors.New("model returned an empty reply")

// ExecutionError is returned for every failure of Complete.
type ExecutionError struct {
	// Service is the configured service name.
	Service string

	// Op is the failing step: "decode", "request", "encode", or "reply".
	Op string

	Err error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("completion %s: %s failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Config describes one completion service.
type Config struct {
	// Name identifies the service in logs and metrics ("agent", "classifier").
	Name string

	// Model is the provider model identifier.
	Model string

	// Instructions is sent as the system message of every request.
	Instructions string

	// Temperature and MaxTokens are forwarded when non-zero.
	Temperature float64
	MaxTokens   int

	// Timeout bounds each call. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Recorder receives one observation per call.
type Recorder interface {
	RecordCompletion(service, outcome string, elapsed time.Duration)
}

// ProviderService implements Service over a providers.Provider.
type ProviderService struct {
	provider providers.Provider
	config   Config
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// Option configures a ProviderService.
type Option func(*ProviderService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ProviderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *ProviderService) { s.recorder = r }
}

// WithTracer sets the tracer. The global otel tracer is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(s *ProviderService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewProviderService creates a completion service.
func NewProviderService(provider providers.Provider, cfg Config, opts ...Option) (*ProviderService, error) {
	if provider == nil {
		return nil, fmt.Errorf("completion %s: provider cannot be nil", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("completion %s: model cannot be empty", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &ProviderService{
		provider: provider,
		config:   cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracing.InstrumentationName + "/completion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "completion", "service", cfg.Name)
	return s, nil
}

// Complete sends the instructions, the decoded history, and prompt to the
// provider. The returned blob encodes prompt and reply.
func (s *ProviderService) Complete(ctx context.Context, prompt string, history []Blob) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "completion.complete")
	defer span.End()
	tracing.SetCompletionAttributes(span, s.config.Name, s.provider.GetName(), s.config.Model, len(history))

	start := time.Now()
	result, err := s.complete(ctx, prompt, history)

	outcome := "success"
	if err != nil {
		outcome = "error"
		tracing.SetError(span, err)
		s.logger.ErrorContext(ctx, "completion failed",
			"provider", s.provider.GetName(),
			"history_turns", len(history),
			"error", err,
		)
	}
	if s.recorder != nil {
		s.recorder.RecordCompletion(s.config.Name, outcome, time.Since(start))
	}
	return result, err
}

func (s *ProviderService) complete(ctx context.Context, prompt string, history []Blob) (*Result, error) {
	messages := make([]providers.Message, 0, 2*len(history)+2)
	if s.config.Instructions != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: s.config.Instructions})
	}
	for i, blob := range history {
		turn, err := DecodeTurn(blob)
		if err != nil {
			return nil, &ExecutionError{Service: s.config.Name, Op: "decode", Err: fmt.Errorf("history[%d]: %w", i, err)}
		}
		messages = append(messages, turn...)
	}
	userMsg := providers.Message{Role: providers.RoleUser, Content: prompt}
	messages = append(messages, userMsg)

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.provider.SendCompletion(ctx, &providers.CompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, &ExecutionError{Service: s.config.Name, Op: "request", Err: err}
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, &ExecutionError{Service: s.config.Name, Op: "reply", Err: ErrEmptyReply}
	}

	blob, err := Seal(prompt, text)
	if err != nil {
		return nil, &ExecutionError{Service: s.config.Name, Op: "encode", Err: err}
	}

	s.logger.DebugContext(ctx, "completion succeeded",
		"model", resp.Model,
		"history_turns", len(history),
		"tokens", resp.Usage.TotalTokens,
	)
	return &Result{Text: text, Context: blob}, nil
}
