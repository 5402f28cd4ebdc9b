// Package gate turns policy verdicts into a pass/fail answer for a single
// message and raises alerts for flagged content.
//
// The gate fails closed: a message passes only on an explicit allow verdict.
// A deny, a warn, any unexpected action, and any error while deciding all
// reject the message.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy/engine"
)

// Roles passed to Inspect.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Decider produces a verdict for a message. *engine.Engine implements it.
type Decider interface {
	Decide(ctx context.Context, text string) (engine.Verdict, error)
}

// Decision is the gate's answer for one message.
type Decision struct {
	engine.Verdict

	// Valid is true only when the verdict was an explicit allow.
	Valid bool
}

// DefaultAlertTimeout bounds the delivery of one alert.
const DefaultAlertTimeout = 30 * time.Second

// Gate validates messages against a Decider.
type Gate struct {
	decider      Decider
	notifier     notify.Notifier
	logger       *slog.Logger
	alertTimeout time.Duration
	pending      sync.WaitGroup
}

// Option configures a Gate.
type Option func(*Gate)

// WithAlertTimeout bounds the delivery of each alert. Non-positive values
// keep DefaultAlertTimeout.
func WithAlertTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.alertTimeout = d
		}
	}
}

// New creates a Gate. A nil notifier discards alerts.
func New(decider Decider, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Gate {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		decider:      decider,
		notifier:     notifier,
		logger:       logger.With("component", "policy.gate"),
		alertTimeout: DefaultAlertTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidMessage reports whether text may pass. Errors are logged and treated
// as a rejection.
func (g *Gate) ValidMessage(ctx context.Context, text string) bool {
	d, err := g.Inspect(ctx, RoleUser, text)
	if err != nil {
		return false
	}
	return d.Valid
}

// Inspect decides text written by role and returns the full decision. On a
// warn verdict exactly one alert is dispatched in the background; delivery
// neither delays nor changes the outcome. A Decide error is logged and
// returned alongside an invalid decision.
func (g *Gate) Inspect(ctx context.Context, role, text string) (Decision, error) {
	v, err := g.decider.Decide(ctx, text)
	if err != nil {
		g.logger.ErrorContext(ctx, "policy decision failed, rejecting message",
			"role", role,
			"digest", notify.Digest(text),
			"error", err,
		)
		return Decision{Verdict: v}, err
	}

	switch v.Action {
	case engine.ActionAllow:
		return Decision{Verdict: v, Valid: true}, nil

	case engine.ActionWarn:
		g.dispatch(ctx, notify.NewAlert(string(v.Category), v.Rule, role, text))
		return Decision{Verdict: v}, nil

	case engine.ActionDeny:
		g.logger.InfoContext(ctx, "message denied",
			"role", role,
			"source", v.Source,
			"category", v.Category,
			"rule", v.Rule,
		)
		return Decision{Verdict: v}, nil

	default:
		g.logger.WarnContext(ctx, "unexpected policy action, rejecting message",
			"action", v.Action,
		)
		return Decision{Verdict: v}, nil
	}
}

// dispatch delivers alert on its own goroutine. The request context keeps
// its values but not its cancellation, so a client disconnect does not drop
// the alert.
func (g *Gate) dispatch(ctx context.Context, alert notify.Alert) {
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()

		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.alertTimeout)
		defer cancel()

		if err := g.notifier.Notify(actx, alert); err != nil {
			g.logger.WarnContext(actx, "alert delivery failed",
				"category", alert.Category,
				"digest", alert.Digest,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every dispatched alert has been delivered or ctx is
// done.
func (g *Gate) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
