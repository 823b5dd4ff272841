// Package resilience provides the retry and circuit-breaker building blocks
// used around the generation service.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/planweaver/planweaver/core"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// ShouldRetry classifies an attempt error as retryable. Defaults to
	// core.IsRetryable. Classification is pure; timing lives in the loop
	ShouldRetry func(error) bool
}

// DefaultRetryConfig provides the generation-service defaults: three
// attempts with 5s, 10s backoff between them
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  5 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		ShouldRetry:   core.IsRetryable,
	}
}

// Retry executes fn across a bounded number of attempts with exponential
// backoff. fn receives the zero-based attempt index so callers can escalate
// behavior (e.g. prompt strictness) on later attempts. The sleep between
// attempts is context-aware and suspends only the calling goroutine
func Retry(ctx context.Context, config *RetryConfig, fn func(attempt int) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	shouldRetry := config.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = core.IsRetryable
	}

	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		// A non-retryable failure is terminal regardless of attempts left
		if !shouldRetry(err) {
			return err
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(config, attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %v: %w",
		config.MaxAttempts, lastErr, core.ErrMaxRetriesExceeded)
}

// backoffDelay computes InitialDelay * BackoffFactor^attempt capped at MaxDelay
func backoffDelay(config *RetryConfig, attempt int) time.Duration {
	delay := config.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			return config.MaxDelay
		}
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// RetryWithCircuitBreaker combines retry logic with a circuit breaker
func RetryWithCircuitBreaker(ctx context.Context, config *RetryConfig, cb *CircuitBreaker, fn func(attempt int) error) error {
	return Retry(ctx, config, func(attempt int) error {
		if !cb.CanExecute() {
			return core.ErrCircuitBreakerOpen
		}

		err := fn(attempt)
		if err != nil {
			cb.RecordFailure(err)
			return err
		}

		cb.RecordSuccess()
		return nil
	})
}
