package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/planweaver/planweaver/core"
)

func fastConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(attempt int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPassesAttemptIndex(t *testing.T) {
	var seen []int
	err := Retry(context.Background(), fastConfig(3), func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return fmt.Errorf("flaky: %w", core.ErrConnectionFailed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 2 {
		t.Errorf("expected attempt indices [0 1 2], got %v", seen)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(attempt int) error {
		calls++
		return fmt.Errorf("always down: %w", core.ErrTimeout)
	})
	if !errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Fatalf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	terminal := fmt.Errorf("bad key: %w", core.ErrInvalidConfiguration)

	err := Retry(context.Background(), fastConfig(3), func(attempt int) error {
		calls++
		return terminal
	})
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Fatalf("expected the terminal error, got %v", err)
	}
	if errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Error("terminal errors must not be wrapped as retry exhaustion")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryCustomClassifier(t *testing.T) {
	config := fastConfig(3)
	config.ShouldRetry = func(err error) bool { return false }

	calls := 0
	err := Retry(context.Background(), config, func(attempt int) error {
		calls++
		return fmt.Errorf("would normally retry: %w", core.ErrTimeout)
	})
	if calls != 1 {
		t.Errorf("custom classifier should make the first failure terminal, got %d calls", calls)
	}
	if errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Error("terminal error must surface unwrapped")
	}
}

func TestRetryContextCanceledDuringBackoff(t *testing.T) {
	config := fastConfig(3)
	config.InitialDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, config, func(attempt int) error {
			calls++
			return fmt.Errorf("down: %w", core.ErrConnectionFailed)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call before cancellation, got %d", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation during backoff")
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	config := &RetryConfig{
		InitialDelay:  5 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{5, 60 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := backoffDelay(config, tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestRetryWithCircuitBreakerRecordsOutcomes(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SleepWindow:      time.Minute,
		HalfOpenRequests: 1,
	})

	err := RetryWithCircuitBreaker(context.Background(), fastConfig(3), cb, func(attempt int) error {
		return fmt.Errorf("down: %w", core.ErrConnectionFailed)
	})
	if !errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("three failures should open the breaker, state is %s", cb.State())
	}

	// With the breaker open, attempts are rejected without running fn
	calls := 0
	err = RetryWithCircuitBreaker(context.Background(), fastConfig(1), cb, func(attempt int) error {
		calls++
		return nil
	})
	if !errors.Is(err, core.ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("open breaker must short-circuit, got %d calls", calls)
	}
}
