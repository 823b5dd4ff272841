package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/planweaver/planweaver/core"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed allows all requests through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows limited requests for testing
	StateHalfOpen
)

// String returns the string representation of the state
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrorClassifier determines which errors count toward the failure threshold
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts infrastructure errors only: configuration
// mistakes and client cancellation do not trip the breaker
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.IsConfigurationError(err) || core.IsValidationError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrContextCanceled) {
		return false
	}
	return true
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// Name identifies the circuit breaker in logs
	Name string

	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int

	// SleepWindow is how long to wait before entering half-open state
	SleepWindow time.Duration

	// HalfOpenRequests is the number of test requests allowed in half-open state
	HalfOpenRequests int

	// ErrorClassifier determines which errors count as failures
	ErrorClassifier ErrorClassifier

	// Logger for state-change events
	Logger core.Logger
}

// DefaultCircuitBreakerConfig returns production defaults
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		FailureThreshold: 5,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 2,
		ErrorClassifier:  DefaultErrorClassifier,
	}
}

// CircuitBreaker implements the closed/open/half-open state machine
type CircuitBreaker struct {
	mu sync.Mutex

	config *CircuitBreakerConfig
	logger core.Logger

	state        CircuitState
	failures     int
	halfOpenUsed int
	openedAt     time.Time
}

// NewCircuitBreaker creates a circuit breaker from config
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	logger := config.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &CircuitBreaker{
		config: config,
		logger: logger,
		state:  StateClosed,
	}
}

// CanExecute reports whether a request may proceed, transitioning open to
// half-open once the sleep window has elapsed
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.SleepWindow {
			cb.transition(StateHalfOpen)
			cb.halfOpenUsed = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenUsed < cb.config.HalfOpenRequests {
			cb.halfOpenUsed++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess notes a successful request and closes a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

// RecordFailure notes a failed request; classified failures past the
// threshold open the circuit
func (cb *CircuitBreaker) RecordFailure(err error) {
	if !cb.config.ErrorClassifier(err) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		if cb.state != StateOpen {
			cb.transition(StateOpen)
			cb.openedAt = time.Now()
		}
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition changes state while holding the lock
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if to != StateOpen {
		cb.halfOpenUsed = 0
	}
	cb.logger.Info("Circuit breaker state change", map[string]interface{}{
		"operation": "circuit_state_change",
		"name":      cb.config.Name,
		"from":      from.String(),
		"to":        to.String(),
	})
}
