package engine

import (
	"strings"

	"mercator-hq/warden/pkg/policy/patterns"
)

// Action is the outcome of a policy decision.
type Action string

const (
	// ActionAllow lets the message through.
	ActionAllow Action = "allow"

	// ActionDeny blocks the message.
	ActionDeny Action = "deny"

	// ActionWarn blocks the message and raises an alert.
	ActionWarn Action = "warn"
)

// String returns the action name.
func (a Action) String() string {
	return string(a)
}

// Source identifies which stage of the cascade produced a verdict.
type Source string

const (
	// SourcePattern means a pattern group decided.
	SourcePattern Source = "pattern"

	// SourceFallback means the classifier model decided.
	SourceFallback Source = "fallback"
)

// Label is the parsed output of the fallback classifier.
type Label string

const (
	LabelAllow        Label = "allow"
	LabelDeny         Label = "deny"
	LabelWarn         Label = "warn"
	LabelUnrecognized Label = "unrecognized"
)

// ParseLabel normalises raw classifier output. Anything other than an exact
// allow/deny/warn after trimming and lowercasing is LabelUnrecognized.
func ParseLabel(raw string) Label {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case LabelAllow:
		return LabelAllow
	case LabelDeny:
		return LabelDeny
	case LabelWarn:
		return LabelWarn
	default:
		return LabelUnrecognized
	}
}

// Action maps a label to the action it implies. Unrecognized labels deny.
func (l Label) Action() Action {
	switch l {
	case LabelAllow:
		return ActionAllow
	case LabelWarn:
		return ActionWarn
	default:
		return ActionDeny
	}
}

// Verdict is the result of evaluating one message.
type Verdict struct {
	// Action is the decision.
	Action Action

	// Source is the cascade stage that decided.
	Source Source

	// Category is the matching pattern category, empty for fallback verdicts.
	Category patterns.Category

	// Rule is the name of the matching rule, empty for fallback verdicts.
	Rule string

	// Label is the parsed classifier output, empty for pattern verdicts.
	Label Label

	// Text is the effective message text. It differs from the input only
	// when PII was redacted in obfuscate mode.
	Text string

	// Redactions counts PII substitutions applied to Text.
	Redactions int
}

// Allowed reports whether the verdict lets the message through.
func (v Verdict) Allowed() bool {
	return v.Action == ActionAllow
}
