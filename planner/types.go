// Package planner implements the plan-generation pipeline: prompt
// construction, the retry ladder around the generation client, tolerant
// JSON repair of model output, and post-processing (placeholder
// substitution and best-effort enrichment).
package planner

import (
	"time"
)

// Preference fallback values used when a request omits a field
const (
	DefaultInterests     = "general"
	DefaultCitizenship   = "not specified"
	DefaultBudget        = "moderate"
	DefaultDepartureCity = "not specified"
)

// Placeholder tokens the model may echo back; the post-processor replaces
// them with the literal preference values wherever they appear
const (
	TokenDepartureCity = "[User's Departure City]"
	TokenCitizenship   = "[User's Citizenship]"
	TokenInterests     = "[User's Interests]"
	TokenBudget        = "[User's Budget]"
)

// UserPreferences carries the optional preference bundle. After validation
// every field is non-empty
type UserPreferences struct {
	Interests     string `json:"interests"`
	Citizenship   string `json:"citizenship"`
	Budget        string `json:"budget"`
	DepartureCity string `json:"departure_city"`
}

// withDefaults fills absent fields with their fallback values
func (p UserPreferences) withDefaults() UserPreferences {
	if p.Interests == "" {
		p.Interests = DefaultInterests
	}
	if p.Citizenship == "" {
		p.Citizenship = DefaultCitizenship
	}
	if p.Budget == "" {
		p.Budget = DefaultBudget
	}
	if p.DepartureCity == "" {
		p.DepartureCity = DefaultDepartureCity
	}
	return p
}

// PlanRequest is the caller's input. A zero StartDate or an unparseable /
// past date resolves to tomorrow; a zero DayCount resolves to the
// configured default. The request is not mutated during processing
type PlanRequest struct {
	// Goal is the free-text objective, 1-1000 characters after trimming
	Goal string `json:"goal"`

	// StartDate is an optional ISO date (YYYY-MM-DD)
	StartDate string `json:"start_date,omitempty"`

	// DayCount is the optional number of days to plan
	DayCount int `json:"day_count,omitempty"`

	// Preferences is the optional preference bundle
	Preferences *UserPreferences `json:"preferences,omitempty"`

	// Save requests persistence of the generated plan
	Save bool `json:"save_to_db,omitempty"`
}

// resolvedRequest is the validated, defaulted form of a PlanRequest
type resolvedRequest struct {
	goal        string
	startDate   time.Time
	dayCount    int
	dayDates    []string // ISO dates, one per day, startDate anchored
	preferences UserPreferences
	save        bool
}

// TaskItem is one actionable task within a day
type TaskItem struct {
	Task          string   `json:"task"`
	EstimatedTime string   `json:"estimated_time"`
	Priority      string   `json:"priority"` // high, medium or low
	DependsOn     []string `json:"depends_on,omitempty"`
}

// DayPlan is one day of the breakdown. Day indices are 1-based and
// contiguous; Date is derived from the resolved start date plus the index,
// never taken from the model
type DayPlan struct {
	Day             int        `json:"day"`
	Date            string     `json:"date"`
	Focus           string     `json:"focus"`
	Tasks           []TaskItem `json:"tasks"`
	ResearchTopics  []string   `json:"research_topics,omitempty"`
	WeatherRelevant bool       `json:"weather_relevant,omitempty"`
	Location        string     `json:"location,omitempty"`
	WeatherForecast string     `json:"weather_forecast,omitempty"`
}

// Enrichment is the best-effort augmentation block
type Enrichment struct {
	ResearchTopics  []string `json:"research_topics,omitempty"`
	ResearchSummary string   `json:"research_summary,omitempty"`
	WebSearchNote   string   `json:"web_search_note,omitempty"`
}

// GeneratedPlan is the structured result. It is only ever returned
// complete: repair and parse either fully succeed or the attempt is
// discarded
type GeneratedPlan struct {
	ID                  string      `json:"id,omitempty"`
	Goal                string      `json:"goal"`
	Overview            string      `json:"overview"`
	EstimatedDuration   string      `json:"estimated_duration"`
	DailyBreakdown      []DayPlan   `json:"daily_breakdown"`
	SuccessMetrics      []string    `json:"success_metrics"`
	PotentialChallenges []string    `json:"potential_challenges"`
	Enrichment          *Enrichment `json:"enrichment,omitempty"`
	Warnings            []string    `json:"warnings,omitempty"`
}

// PlanRecord is a persisted plan. The Plan Persistence Port is defined here
// and implemented by the storage package
type PlanRecord struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Steps     []DayPlan `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}
