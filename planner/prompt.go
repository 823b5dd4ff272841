package planner

import (
	"fmt"
	"strings"
)

// Strictness selects the prompt variant. The first attempt uses the
// detailed variant; later attempts escalate to the terse variant, which
// trades guidance for a harder JSON-only instruction
type Strictness int

const (
	// StrictnessDetailed is the full instruction set with schema guidance
	StrictnessDetailed Strictness = iota
	// StrictnessTerse is the escalated JSON-only variant
	StrictnessTerse
)

// String returns the variant name for logs
func (s Strictness) String() string {
	if s == StrictnessTerse {
		return "terse"
	}
	return "detailed"
}

// planSchema is the exact response shape the model must produce. Both
// prompt variants embed it verbatim
const planSchema = `{
  "goal": "the stated goal",
  "overview": "a 2-3 sentence overview of the plan",
  "estimated_duration": "total duration, e.g. '7 days'",
  "daily_breakdown": [
    {
      "day": 1,
      "date": "YYYY-MM-DD",
      "focus": "the day's main theme",
      "tasks": [
        {
          "task": "a specific, actionable task",
          "estimated_time": "e.g. '2 hours'",
          "priority": "high, medium or low"
        }
      ]
    }
  ],
  "success_metrics": ["how progress will be measured"],
  "potential_challenges": ["obstacles and how to handle them"]
}`

// BuildPrompt assembles the generation prompt for one attempt. Preference
// placeholder tokens never reach the model: the builder substitutes the
// literal values before returning
func BuildPrompt(r *resolvedRequest, strictness Strictness) string {
	var b strings.Builder

	if strictness == StrictnessTerse {
		b.WriteString("Return ONLY a single valid JSON object. No markdown, no code fences, no commentary.\n")
		b.WriteString("Use double quotes for all keys and string values. No trailing commas.\n\n")
		b.WriteString("Schema:\n")
		b.WriteString(planSchema)
		b.WriteString("\n\n")
		writeRequestFacts(&b, r)
		return substitutePreferenceTokens(b.String(), r.preferences)
	}

	b.WriteString("You are an expert planner. Create a detailed, realistic day-by-day plan ")
	b.WriteString("that helps the user achieve their goal.\n\n")
	writeRequestFacts(&b, r)
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Break the goal into concrete daily tasks with time estimates and priorities.\n")
	b.WriteString("- Sequence tasks so earlier days build toward later ones.\n")
	b.WriteString("- Keep each day achievable; do not overload any single day.\n")
	b.WriteString("- Tailor tasks to the user's interests, budget and circumstances above.\n\n")
	b.WriteString("Respond with a JSON object exactly matching this structure:\n")
	b.WriteString(planSchema)
	b.WriteString("\n\nRespond with valid JSON only.\n")

	return substitutePreferenceTokens(b.String(), r.preferences)
}

// writeRequestFacts emits the goal, schedule and preference lines shared by
// both variants
func writeRequestFacts(b *strings.Builder, r *resolvedRequest) {
	fmt.Fprintf(b, "Goal: %s\n", r.goal)
	fmt.Fprintf(b, "Plan length: %d days\n", r.dayCount)
	fmt.Fprintf(b, "Start date: %s (day 1)\n", r.dayDates[0])
	if r.dayCount > 1 {
		fmt.Fprintf(b, "End date: %s (day %d)\n", r.dayDates[len(r.dayDates)-1], r.dayCount)
	}
	b.WriteString("Use these exact dates for the daily_breakdown, in order: ")
	b.WriteString(strings.Join(r.dayDates, ", "))
	b.WriteString("\n")
	fmt.Fprintf(b, "User interests: %s\n", r.preferences.Interests)
	fmt.Fprintf(b, "User budget: %s\n", r.preferences.Budget)
	fmt.Fprintf(b, "User citizenship: %s\n", r.preferences.Citizenship)
	fmt.Fprintf(b, "User departure city: %s\n", r.preferences.DepartureCity)
}

// substitutePreferenceTokens replaces any placeholder tokens with the
// resolved preference values
func substitutePreferenceTokens(text string, prefs UserPreferences) string {
	return preferenceReplacer(prefs).Replace(text)
}

func preferenceReplacer(prefs UserPreferences) *strings.Replacer {
	return strings.NewReplacer(
		TokenDepartureCity, prefs.DepartureCity,
		TokenCitizenship, prefs.Citizenship,
		TokenInterests, prefs.Interests,
		TokenBudget, prefs.Budget,
	)
}
