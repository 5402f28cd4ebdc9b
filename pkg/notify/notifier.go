// Package notify delivers policy alerts raised when a message is flagged
// for review.
//
// Alerts identify the offending content by a BLAKE3 digest and a short
// excerpt. The full message text never leaves the process through a
// notifier.
package notify

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// ExcerptLength is the maximum number of runes kept in Alert.Excerpt.
const ExcerptLength = 64

// Alert describes one flagged message.
type Alert struct {
	// Category is the pattern category that raised the alert.
	Category string `json:"category"`

	// Rule is the name of the rule that matched.
	Rule string `json:"rule,omitempty"`

	// Digest is the hex BLAKE3-256 digest of the full message text.
	Digest string `json:"digest"`

	// Excerpt is the leading part of the message, at most ExcerptLength runes.
	Excerpt string `json:"excerpt"`

	// Role is the author of the message ("user" or "agent").
	Role string `json:"role,omitempty"`

	// At is when the alert was raised.
	At time.Time `json:"at"`
}

// NewAlert builds an alert for text.
func NewAlert(category, rule, role, text string) Alert {
	return Alert{
		Category: category,
		Rule:     rule,
		Digest:   Digest(text),
		Excerpt:  Excerpt(text, ExcerptLength),
		Role:     role,
		At:       time.Now().UTC(),
	}
}

// Digest returns the hex BLAKE3-256 digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Excerpt truncates text to at most n runes, appending "..." when cut.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, alert Alert) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// Nop discards every alert.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Alert) error { return nil }

// LogNotifier writes alerts to a structured logger at warn level.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.logger.WarnContext(ctx, "message flagged for review",
		"category", alert.Category,
		"rule", alert.Rule,
		"role", alert.Role,
		"digest", alert.Digest,
	)
	return nil
}

// Multi fans an alert out to every notifier. All notifiers are tried; their
// errors are joined.
type Multi []Notifier

// Notify delivers alert to each notifier in order.
func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
