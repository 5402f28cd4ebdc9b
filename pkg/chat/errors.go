package chat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Stage names the check that rejected a message.
type Stage string

const (
	StageInbound  Stage = "inbound"
	StageOutbound Stage = "outbound"
)

// PolicyRejectedError is returned when the user message or the generated
// reply fails the policy gate.
type PolicyRejectedError struct {
	Stage    Stage
	Category string
	Rule     string
}

// Error implements the error interface.
func (e *PolicyRejectedError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("%s message rejected by policy (category %s)", e.Stage, e.Category)
	}
	return fmt.Sprintf("%s message rejected by policy", e.Stage)
}

// ConversationNotFoundError is returned when resuming a conversation with no
// stored messages.
type ConversationNotFoundError struct {
	ConversationID uuid.UUID
}

// Error implements the error interface.
func (e *ConversationNotFoundError) Error() string {
	return fmt.Sprintf("conversation %s not found", e.ConversationID)
}

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the store error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ModelExecutionError wraps an agent completion failure.
type ModelExecutionError struct {
	Err error
}

// Error implements the error interface.
func (e *ModelExecutionError) Error() string {
	return fmt.Sprintf("agent completion failed: %v", e.Err)
}

// Unwrap returns the completion error.
func (e *ModelExecutionError) Unwrap() error {
	return e.Err
}

// IsPolicyRejected reports whether err is a *PolicyRejectedError.
func IsPolicyRejected(err error) bool {
	var target *PolicyRejectedError
	return errors.As(err, &target)
}
