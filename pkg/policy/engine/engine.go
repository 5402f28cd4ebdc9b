package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/warden/pkg/policy/patterns"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// RuleProvider supplies the active rule set. source.Holder implements it.
type RuleProvider interface {
	Rules() *patterns.RuleSet
}

// StaticRules is a RuleProvider that always returns the same rule set.
type StaticRules struct {
	Set *patterns.RuleSet
}

// Rules returns the wrapped rule set, or the built-in rules when unset.
func (s StaticRules) Rules() *patterns.RuleSet {
	if s.Set == nil {
		return patterns.DefaultRuleSet()
	}
	return s.Set
}

// Recorder receives one observation per decision. The metrics collector
// implements it.
type Recorder interface {
	RecordPolicyDecision(action, source string, elapsed time.Duration)
}

// step is one entry of the cascade: when category matched, the verdict is
// action.
type step struct {
	category patterns.Category
	action   Action
}

// cascade is evaluated top to bottom; the first matching step decides.
var cascade = []step{
	{category: patterns.CategoryInjection, action: ActionDeny},
	{category: patterns.CategoryAbuse, action: ActionDeny},
	{category: patterns.CategoryCode, action: ActionDeny},
	{category: patterns.CategoryPII, action: ActionDeny},
	{category: patterns.CategorySuspicious, action: ActionWarn},
}

// Engine decides whether a message may pass.
//
// Decide is safe for concurrent use. The rule set is read once per call from
// the RuleProvider so a reload never affects a decision in flight.
type Engine struct {
	rules      RuleProvider
	classifier Classifier
	config     Config
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTracer sets the tracer used for policy.decide spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an engine. A nil rules provider uses the built-in rule set. A
// nil classifier makes every undecided message fail with a
// ModelExecutionError.
func New(rules RuleProvider, classifier Classifier, cfg Config, opts ...Option) (*Engine, error) {
	if cfg.PIIMode == "" {
		cfg.PIIMode = PIIModeDeny
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if rules == nil {
		rules = StaticRules{}
	}

	e := &Engine{
		rules:      rules,
		classifier: classifier,
		config:     cfg,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracing.InstrumentationName + "/policy"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "policy.engine")
	return e, nil
}

// Evaluate runs the pattern cascade only. The boolean is false when no
// pattern step decided and the message would go to the fallback classifier;
// the returned verdict then carries only the effective text.
func (e *Engine) Evaluate(text string) (Verdict, bool) {
	rules := e.rules.Rules()
	effective := text
	redactions := 0
	matches := rules.Classify(effective)

	for _, s := range cascade {
		m, ok := matches.Get(s.category)
		if !ok {
			continue
		}
		if s.category == patterns.CategoryPII && e.config.PIIMode == PIIModeObfuscate {
			effective, redactions = rules.Redact(effective)
			matches = rules.Classify(effective)
			continue
		}
		return Verdict{
			Action:     s.action,
			Source:     SourcePattern,
			Category:   m.Category,
			Rule:       m.Rule,
			Text:       effective,
			Redactions: redactions,
		}, true
	}

	return Verdict{Text: effective, Redactions: redactions}, false
}

// Decide evaluates text against the cascade and, when no pattern decides,
// the fallback classifier. Classifier failures are returned as
// *ModelExecutionError together with a deny verdict.
func (e *Engine) Decide(ctx context.Context, text string) (Verdict, error) {
	ctx, span := e.tracer.Start(ctx, "policy.decide")
	defer span.End()

	start := time.Now()
	verdict, decided := e.Evaluate(text)
	if decided {
		e.finish(ctx, span, verdict, start, nil)
		return verdict, nil
	}

	verdict, err := e.fallback(ctx, verdict)
	e.finish(ctx, span, verdict, start, err)
	return verdict, err
}

func (e *Engine) fallback(ctx context.Context, verdict Verdict) (Verdict, error) {
	verdict.Source = SourceFallback
	verdict.Action = ActionDeny

	if e.classifier == nil {
		return verdict, &ModelExecutionError{Err: ErrNoClassifier}
	}

	raw, err := e.classifier.Classify(ctx, strings.ToLower(verdict.Text))
	if err != nil {
		return verdict, &ModelExecutionError{Err: err}
	}

	verdict.Label = ParseLabel(raw)
	verdict.Action = verdict.Label.Action()
	if verdict.Label == LabelUnrecognized {
		e.logger.WarnContext(ctx, "classifier returned unrecognized label, denying",
			"output_length", len(raw),
		)
	}
	return verdict, nil
}

func (e *Engine) finish(ctx context.Context, span trace.Span, v Verdict, start time.Time, err error) {
	elapsed := time.Since(start)

	action := v.Action.String()
	if err != nil {
		action = "error"
	}

	tracing.SetPolicyAttributes(span, action, string(v.Source), string(v.Category), v.Rule)
	if err != nil {
		tracing.SetError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if e.recorder != nil {
		e.recorder.RecordPolicyDecision(action, string(v.Source), elapsed)
	}

	e.logger.DebugContext(ctx, "policy decision",
		"action", action,
		"source", v.Source,
		"category", v.Category,
		"rule", v.Rule,
		"redactions", v.Redactions,
		"duration_us", elapsed.Microseconds(),
	)
}
