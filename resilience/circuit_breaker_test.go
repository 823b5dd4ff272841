package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/planweaver/planweaver/core"
)

func testBreaker(threshold int, sleepWindow time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: threshold,
		SleepWindow:      sleepWindow,
		HalfOpenRequests: 1,
	})
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := testBreaker(3, time.Minute)
	failure := fmt.Errorf("down: %w", core.ErrConnectionFailed)

	for i := 0; i < 2; i++ {
		cb.RecordFailure(failure)
		if cb.State() != StateClosed {
			t.Fatalf("breaker opened early after %d failures", i+1)
		}
	}

	cb.RecordFailure(failure)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.State())
	}
	if cb.CanExecute() {
		t.Error("open breaker must reject requests inside the sleep window")
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := testBreaker(1, 5*time.Millisecond)
	cb.RecordFailure(fmt.Errorf("down: %w", core.ErrConnectionFailed))

	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(10 * time.Millisecond)

	if !cb.CanExecute() {
		t.Fatal("expected half-open probe after the sleep window")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}
	if cb.CanExecute() {
		t.Error("half-open should admit only the configured probe count")
	}

	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Fatalf("probe success should close the breaker, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(1, 5*time.Millisecond)
	cb.RecordFailure(fmt.Errorf("down: %w", core.ErrConnectionFailed))

	time.Sleep(10 * time.Millisecond)
	if !cb.CanExecute() {
		t.Fatal("expected half-open probe")
	}

	cb.RecordFailure(fmt.Errorf("still down: %w", core.ErrConnectionFailed))
	if cb.State() != StateOpen {
		t.Fatalf("probe failure should reopen, got %s", cb.State())
	}
}

func TestCircuitBreakerIgnoresUnclassifiedErrors(t *testing.T) {
	cb := testBreaker(1, time.Minute)

	cb.RecordFailure(fmt.Errorf("bad config: %w", core.ErrInvalidConfiguration))
	cb.RecordFailure(fmt.Errorf("bad input: %w", core.ErrValidation))
	cb.RecordFailure(fmt.Errorf("caller bailed: %w", context.Canceled))
	cb.RecordFailure(nil)

	if got := cb.State(); got != StateClosed {
		t.Errorf("caller mistakes must not trip the breaker, got %s", got)
	}
}

func TestDefaultErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout counts", fmt.Errorf("x: %w", core.ErrTimeout), true},
		{"connection counts", fmt.Errorf("x: %w", core.ErrConnectionFailed), true},
		{"validation ignored", fmt.Errorf("x: %w", core.ErrValidation), false},
		{"configuration ignored", fmt.Errorf("x: %w", core.ErrInvalidConfiguration), false},
		{"cancellation ignored", context.Canceled, false},
		{"unknown counts", errors.New("mystery"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultErrorClassifier(tt.err); got != tt.want {
				t.Errorf("DefaultErrorClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" {
		t.Error("state names wrong")
	}
}
