package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Validation errors
	ErrValidation      = errors.New("validation failed")
	ErrEmptyGoal       = errors.New("goal cannot be empty")
	ErrGoalTooLong     = errors.New("goal exceeds maximum length")
	ErrInvalidDayCount = errors.New("day count out of range")

	// Generation service errors
	ErrTimeout            = errors.New("operation timeout")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrEmptyResponse      = errors.New("empty response from generation service")
	ErrUnrepairableFormat = errors.New("response format could not be repaired")

	// Retry errors
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrContextCanceled    = errors.New("context canceled")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Storage errors
	ErrPlanNotFound = errors.New("plan not found")
)

// PlannerError provides structured error information with context
// It implements the error interface and supports error wrapping
type PlannerError struct {
	Op      string // Operation that failed (e.g., "planner.GeneratePlan")
	Kind    string // Error kind (e.g., "generation", "repair", "storage")
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *PlannerError) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *PlannerError) Unwrap() error {
	return e.Err
}

// NewPlannerError creates a new PlannerError
func NewPlannerError(op, kind string, err error) *PlannerError {
	return &PlannerError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsRetryable checks if an error is retryable
// Retryable errors are transient generation-service failures: every failure
// mode of a single attempt (timeout, connection, empty output, unrepairable
// output) funnels into the same retry ladder
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrUnrepairableFormat)
}

// IsValidationError checks if an error is caller-input related.
// Validation errors are never retried
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrEmptyGoal) ||
		errors.Is(err, ErrGoalTooLong) ||
		errors.Is(err, ErrInvalidDayCount)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// FailureReason is the terminal diagnostic attached to a plan-generation
// failure after all attempts are exhausted
type FailureReason string

const (
	ReasonTimeout    FailureReason = "timeout"
	ReasonMalformed  FailureReason = "malformed"
	ReasonConnection FailureReason = "connection"
	ReasonEmpty      FailureReason = "empty"
	ReasonUnknown    FailureReason = "unknown"
)

// ClassifyFailure maps an underlying attempt error to a FailureReason
func ClassifyFailure(err error) FailureReason {
	switch {
	case errors.Is(err, ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrUnrepairableFormat):
		return ReasonMalformed
	case errors.Is(err, ErrConnectionFailed):
		return ReasonConnection
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmpty
	default:
		return ReasonUnknown
	}
}
