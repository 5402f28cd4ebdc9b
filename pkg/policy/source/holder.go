package source

import (
	"log/slog"
	"sync/atomic"

	"mercator-hq/warden/pkg/policy/patterns"
)

// Holder publishes the active rule set to concurrent readers.
// Readers never block writers; a reload replaces the whole set atomically.
type Holder struct {
	current atomic.Pointer[patterns.RuleSet]
	reloads atomic.Int64
	logger  *slog.Logger
}

// NewHolder creates a Holder seeded with initial, or the built-in rules when
// initial is nil.
func NewHolder(initial *patterns.RuleSet, logger *slog.Logger) *Holder {
	if initial == nil {
		initial = patterns.DefaultRuleSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Holder{logger: logger.With("component", "policy.rules")}
	h.current.Store(initial)
	return h
}

// Rules returns the active rule set.
func (h *Holder) Rules() *patterns.RuleSet {
	return h.current.Load()
}

// Swap installs rules as the active rule set.
func (h *Holder) Swap(rules *patterns.RuleSet) {
	if rules == nil {
		return
	}
	h.current.Store(rules)
	h.reloads.Add(1)
	h.logger.Info("rule set installed",
		"source", rules.Source(),
		"rules", rules.Len(),
	)
}

// Reloads returns how many times Swap installed a new rule set.
func (h *Holder) Reloads() int64 {
	return h.reloads.Load()
}

// ReloadFile loads path and installs it. On failure the active rule set is
// kept and the error is returned.
func (h *Holder) ReloadFile(path string) error {
	rules, err := LoadFile(path)
	if err != nil {
		h.logger.Error("rule reload failed, keeping previous rules",
			"path", path,
			"error", err,
		)
		return err
	}
	h.Swap(rules)
	return nil
}
