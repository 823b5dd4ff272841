package planner

import (
	"fmt"
	"strings"
)

// FormatPlan renders a plan as a human-readable report. It is a pure
// function of the plan: no mutation, same output for the same input
func FormatPlan(plan *GeneratedPlan) string {
	if plan == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "PLAN: %s\n", plan.Goal)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if plan.Overview != "" {
		fmt.Fprintf(&b, "Overview: %s\n", plan.Overview)
	}
	if plan.EstimatedDuration != "" {
		fmt.Fprintf(&b, "Duration: %s\n", plan.EstimatedDuration)
	}
	b.WriteString("\n")

	for _, day := range plan.DailyBreakdown {
		fmt.Fprintf(&b, "Day %d - %s\n", day.Day, day.Date)
		if day.Focus != "" {
			fmt.Fprintf(&b, "Focus: %s\n", day.Focus)
		}
		for _, task := range day.Tasks {
			fmt.Fprintf(&b, "  [%s] %s", priorityMarker(task.Priority), task.Task)
			if task.EstimatedTime != "" {
				fmt.Fprintf(&b, " (%s)", task.EstimatedTime)
			}
			b.WriteString("\n")
		}
		if day.WeatherForecast != "" {
			fmt.Fprintf(&b, "  Weather: %s\n", day.WeatherForecast)
		}
		b.WriteString("\n")
	}

	if len(plan.SuccessMetrics) > 0 {
		b.WriteString("Success Metrics:\n")
		for _, m := range plan.SuccessMetrics {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(plan.PotentialChallenges) > 0 {
		b.WriteString("Potential Challenges:\n")
		for _, c := range plan.PotentialChallenges {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
		b.WriteString("\n")
	}

	if plan.Enrichment != nil {
		if len(plan.Enrichment.ResearchTopics) > 0 {
			b.WriteString("Research Topics:\n")
			for _, t := range plan.Enrichment.ResearchTopics {
				fmt.Fprintf(&b, "  - %s\n", t)
			}
			b.WriteString("\n")
		}
		if plan.Enrichment.ResearchSummary != "" {
			fmt.Fprintf(&b, "Research Summary:\n%s\n\n", plan.Enrichment.ResearchSummary)
		}
		if plan.Enrichment.WebSearchNote != "" {
			fmt.Fprintf(&b, "Note: %s\n\n", plan.Enrichment.WebSearchNote)
		}
	}

	for _, w := range plan.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// priorityMarker maps a priority to its display marker
func priorityMarker(priority string) string {
	switch priority {
	case "high":
		return "HIGH"
	case "low":
		return "LOW "
	default:
		return "MED "
	}
}
