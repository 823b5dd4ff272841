package planner

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/planweaver/planweaver/core"
)

func testConfig() *core.Config {
	return &core.Config{
		AI: core.AIClientConfig{
			Model:   "gemini-1.5-flash",
			Timeout: 60 * time.Second,
		},
		Planner: core.PlannerConfig{
			MaxAttempts:     3,
			BackoffBase:     0, // no sleeping in tests
			DefaultDayCount: 7,
			MaxDayCount:     90,
		},
	}
}

func fixedNow(t *testing.T, date string) time.Time {
	t.Helper()
	now, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date: %v", err)
	}
	return now
}

func TestResolveRequestDefaults(t *testing.T) {
	now := fixedNow(t, "2024-01-01")

	r, err := resolveRequest(PlanRequest{Goal: "learn Go"}, testConfig(), now, &core.NoOpLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.dayCount != 7 {
		t.Errorf("expected default day count 7, got %d", r.dayCount)
	}
	if got := r.startDate.Format("2006-01-02"); got != "2024-01-02" {
		t.Errorf("expected start tomorrow 2024-01-02, got %s", got)
	}
	if len(r.dayDates) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(r.dayDates))
	}
	if r.dayDates[6] != "2024-01-08" {
		t.Errorf("expected last date 2024-01-08, got %s", r.dayDates[6])
	}
	if r.preferences.Budget != DefaultBudget {
		t.Errorf("expected default budget, got %q", r.preferences.Budget)
	}
}

func TestResolveRequestStartDates(t *testing.T) {
	now := fixedNow(t, "2024-01-01")

	tests := []struct {
		name      string
		startDate string
		want      string
	}{
		{"omitted", "", "2024-01-02"},
		{"past date shifts to tomorrow", "2023-12-25", "2024-01-02"},
		{"today shifts to tomorrow", "2024-01-01", "2024-01-02"},
		{"unparseable shifts to tomorrow", "next tuesday", "2024-01-02"},
		{"future date kept", "2024-03-15", "2024-03-15"},
		{"tomorrow kept", "2024-01-02", "2024-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := resolveRequest(PlanRequest{Goal: "g", StartDate: tt.startDate},
				testConfig(), now, &core.NoOpLogger{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.startDate.Format("2006-01-02"); got != tt.want {
				t.Errorf("expected start %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveRequestGoalValidation(t *testing.T) {
	now := fixedNow(t, "2024-01-01")

	_, err := resolveRequest(PlanRequest{Goal: "   "}, testConfig(), now, &core.NoOpLogger{})
	if !errors.Is(err, core.ErrEmptyGoal) {
		t.Errorf("expected ErrEmptyGoal, got %v", err)
	}
	if !core.IsValidationError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}

	_, err = resolveRequest(PlanRequest{Goal: strings.Repeat("x", 1001)},
		testConfig(), now, &core.NoOpLogger{})
	if !errors.Is(err, core.ErrGoalTooLong) {
		t.Errorf("expected ErrGoalTooLong, got %v", err)
	}

	// Exactly 1000 characters is allowed
	_, err = resolveRequest(PlanRequest{Goal: strings.Repeat("x", 1000)},
		testConfig(), now, &core.NoOpLogger{})
	if err != nil {
		t.Errorf("expected 1000-char goal accepted, got %v", err)
	}
}

func TestResolveRequestDayCountBounds(t *testing.T) {
	now := fixedNow(t, "2024-01-01")

	for _, count := range []int{-1, 91} {
		_, err := resolveRequest(PlanRequest{Goal: "g", DayCount: count},
			testConfig(), now, &core.NoOpLogger{})
		if !errors.Is(err, core.ErrInvalidDayCount) {
			t.Errorf("day count %d: expected ErrInvalidDayCount, got %v", count, err)
		}
	}

	r, err := resolveRequest(PlanRequest{Goal: "g", DayCount: 90},
		testConfig(), now, &core.NoOpLogger{})
	if err != nil {
		t.Fatalf("day count 90 should be accepted: %v", err)
	}
	if len(r.dayDates) != 90 {
		t.Errorf("expected 90 dates, got %d", len(r.dayDates))
	}
}

func TestResolveRequestPreferenceDefaults(t *testing.T) {
	now := fixedNow(t, "2024-01-01")

	r, err := resolveRequest(PlanRequest{
		Goal:        "g",
		Preferences: &UserPreferences{Interests: "hiking"},
	}, testConfig(), now, &core.NoOpLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.preferences.Interests != "hiking" {
		t.Errorf("explicit interest lost: %q", r.preferences.Interests)
	}
	if r.preferences.DepartureCity != DefaultDepartureCity {
		t.Errorf("expected default departure city, got %q", r.preferences.DepartureCity)
	}
	if r.preferences.Citizenship != DefaultCitizenship {
		t.Errorf("expected default citizenship, got %q", r.preferences.Citizenship)
	}
}
