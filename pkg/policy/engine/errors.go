package engine

import (
	"errors"
	"fmt"
)

// ErrNoClassifier is wrapped by ModelExecutionError when the cascade reaches
// the fallback stage but no classifier was configured.
var ErrNoClassifier = errors.New("no fallback classifier configured")

// ModelExecutionError reports that the fallback classifier could not produce
// a label. It is returned by Decide and never converted into a verdict.
type ModelExecutionError struct {
	Err error
}

// Error returns the error message.
func (e *ModelExecutionError) Error() string {
	return fmt.Sprintf("policy classifier failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ModelExecutionError) Unwrap() error {
	return e.Err
}

// IsModelExecutionError reports whether err is or wraps a ModelExecutionError.
func IsModelExecutionError(err error) bool {
	var mee *ModelExecutionError
	return errors.As(err, &mee)
}
