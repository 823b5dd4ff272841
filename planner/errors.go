package planner

import (
	"fmt"

	"github.com/planweaver/planweaver/core"
)

// ValidationError reports a rejected request field. It wraps
// core.ErrValidation so errors.Is works across package boundaries
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return core.ErrValidation
}

func newValidationError(field, message string, sentinel error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: sentinel}
}

// PlanGenerationError is the terminal failure of the retry ladder. Reason
// carries the classified cause of the final attempt so callers can branch
// without string matching
type PlanGenerationError struct {
	Reason   core.FailureReason
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("plan generation failed after %d attempts (reason: %s): %v",
		e.Attempts, e.Reason, e.Err)
}

// Unwrap returns the final attempt's error
func (e *PlanGenerationError) Unwrap() error {
	return e.Err
}
