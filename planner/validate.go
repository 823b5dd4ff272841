package planner

import (
	"strings"
	"time"

	"github.com/planweaver/planweaver/core"
)

const (
	maxGoalLength = 1000
	dateLayout    = "2006-01-02"
)

// resolveRequest validates a PlanRequest and fills defaults. Goal must be
// 1-1000 characters after trimming. A missing, malformed or past start date
// resolves to tomorrow. A zero day count takes the configured default;
// out-of-range counts are rejected
func resolveRequest(req PlanRequest, cfg *core.Config, now time.Time, logger core.Logger) (*resolvedRequest, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil, newValidationError("goal", "goal must not be empty", core.ErrEmptyGoal)
	}
	if len(goal) > maxGoalLength {
		return nil, newValidationError("goal", "goal exceeds 1000 characters", core.ErrGoalTooLong)
	}

	dayCount := req.DayCount
	if dayCount == 0 {
		dayCount = cfg.Planner.DefaultDayCount
	}
	if dayCount < 1 || dayCount > cfg.Planner.MaxDayCount {
		return nil, newValidationError("day_count", "day count out of range", core.ErrInvalidDayCount)
	}

	start := resolveStartDate(req.StartDate, now, logger)

	dates := make([]string, dayCount)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(dateLayout)
	}

	prefs := UserPreferences{}
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	return &resolvedRequest{
		goal:        goal,
		startDate:   start,
		dayCount:    dayCount,
		dayDates:    dates,
		preferences: prefs.withDefaults(),
		save:        req.Save,
	}, nil
}

// resolveStartDate returns the plan's first day. Plans always start in the
// future: an absent, unparseable or non-future date becomes tomorrow
func resolveStartDate(raw string, now time.Time, logger core.Logger) time.Time {
	tomorrow := truncateToDay(now).AddDate(0, 0, 1)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return tomorrow
	}

	parsed, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		logger.Warn("Unparseable start date, using tomorrow", map[string]interface{}{
			"operation":  "resolve_start_date",
			"start_date": raw,
			"error":      err.Error(),
		})
		return tomorrow
	}

	if !parsed.After(truncateToDay(now)) {
		logger.Warn("Start date not in the future, using tomorrow", map[string]interface{}{
			"operation":  "resolve_start_date",
			"start_date": raw,
		})
		return tomorrow
	}

	return parsed
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
