package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/planweaver/planweaver/core"
)

// maxResearchTopics caps the enrichment summary's topic list
const maxResearchTopics = 5

// WeatherService supplies a human-readable forecast for a city and ISO
// date. Implemented by tools.WeatherClient
type WeatherService interface {
	Forecast(ctx context.Context, city, date string) (string, error)
}

// SearchService runs a web search and returns a formatted summary.
// Implemented by tools.SearchClient
type SearchService interface {
	Search(ctx context.Context, query string) (string, error)
}

// PostProcessor turns a repaired model response into a final plan:
// placeholder substitution, day/date normalization and best-effort
// enrichment. Enrichment never fails the pipeline; each sub-call failure is
// absorbed into the affected day or the enrichment block
type PostProcessor struct {
	weather   WeatherService
	search    SearchService
	logger    core.Logger
	telemetry core.Telemetry
}

// PostOption configures a PostProcessor
type PostOption func(*PostProcessor)

// WithWeather wires the weather collaborator
func WithWeather(w WeatherService) PostOption {
	return func(p *PostProcessor) { p.weather = w }
}

// WithSearch wires the web-search collaborator
func WithSearch(s SearchService) PostOption {
	return func(p *PostProcessor) { p.search = s }
}

// WithPostLogger sets the logger
func WithPostLogger(l core.Logger) PostOption {
	return func(p *PostProcessor) { p.logger = l }
}

// WithPostTelemetry sets the telemetry provider
func WithPostTelemetry(t core.Telemetry) PostOption {
	return func(p *PostProcessor) { p.telemetry = t }
}

// NewPostProcessor creates a post-processor. All collaborators are
// optional; with none, processing reduces to substitution and
// normalization
func NewPostProcessor(opts ...PostOption) *PostProcessor {
	p := &PostProcessor{
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process finalizes a decoded plan in place: substitute preference
// placeholders, normalize day indices and dates against the request, then
// enrich. It always returns a complete plan
func (p *PostProcessor) Process(ctx context.Context, plan *GeneratedPlan, r *resolvedRequest) *GeneratedPlan {
	ctx, span := p.telemetry.StartSpan(ctx, "planner.post_process")
	defer span.End()

	substitutePlanStrings(plan, r.preferences)
	normalizeDays(plan, r)
	p.enrichWeather(ctx, plan, r)
	p.enrichResearch(ctx, plan, r)

	span.SetAttribute("plan.days", len(plan.DailyBreakdown))
	return plan
}

// SubstitutePlaceholders walks an arbitrarily nested JSON value and
// replaces placeholder tokens in every string, at any depth. Maps and
// slices are rewritten; other values pass through untouched
func SubstitutePlaceholders(value interface{}, replacements map[string]string) interface{} {
	pairs := make([]string, 0, len(replacements)*2)
	for token, replacement := range replacements {
		pairs = append(pairs, token, replacement)
	}
	return substituteValue(value, strings.NewReplacer(pairs...))
}

func substituteValue(value interface{}, replacer *strings.Replacer) interface{} {
	switch v := value.(type) {
	case string:
		return replacer.Replace(v)
	case map[string]interface{}:
		for key, inner := range v {
			v[key] = substituteValue(inner, replacer)
		}
		return v
	case []interface{}:
		for i, inner := range v {
			v[i] = substituteValue(inner, replacer)
		}
		return v
	default:
		return value
	}
}

// substitutePlanStrings applies preference-token substitution across the
// typed plan's string fields
func substitutePlanStrings(plan *GeneratedPlan, prefs UserPreferences) {
	rep := preferenceReplacer(prefs)

	plan.Goal = rep.Replace(plan.Goal)
	plan.Overview = rep.Replace(plan.Overview)
	plan.EstimatedDuration = rep.Replace(plan.EstimatedDuration)
	replaceAll(plan.SuccessMetrics, rep)
	replaceAll(plan.PotentialChallenges, rep)

	for i := range plan.DailyBreakdown {
		day := &plan.DailyBreakdown[i]
		day.Focus = rep.Replace(day.Focus)
		day.Location = rep.Replace(day.Location)
		replaceAll(day.ResearchTopics, rep)
		for j := range day.Tasks {
			task := &day.Tasks[j]
			task.Task = rep.Replace(task.Task)
			task.EstimatedTime = rep.Replace(task.EstimatedTime)
			replaceAll(task.DependsOn, rep)
		}
	}
}

func replaceAll(values []string, rep *strings.Replacer) {
	for i, v := range values {
		values[i] = rep.Replace(v)
	}
}

// normalizeDays enforces the day invariants: indices are rewritten to a
// contiguous 1..N sequence and dates are derived from the request start
// date, regardless of what the model produced. Task priorities collapse to
// the known set
func normalizeDays(plan *GeneratedPlan, r *resolvedRequest) {
	for i := range plan.DailyBreakdown {
		day := &plan.DailyBreakdown[i]
		day.Day = i + 1
		day.Date = r.startDate.AddDate(0, 0, i).Format(dateLayout)
		for j := range day.Tasks {
			day.Tasks[j].Priority = normalizePriority(day.Tasks[j].Priority)
		}
	}
}

func normalizePriority(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

// enrichWeather attaches a forecast to each day that has a location and
// date. Days are processed sequentially; a failure on one day is recorded
// on that day and does not affect the others
func (p *PostProcessor) enrichWeather(ctx context.Context, plan *GeneratedPlan, r *resolvedRequest) {
	if p.weather == nil {
		return
	}

	for i := range plan.DailyBreakdown {
		day := &plan.DailyBreakdown[i]

		city := day.Location
		if city == "" {
			city = locationFromGoal(r.goal)
		}
		if city == "" || day.Date == "" {
			continue
		}

		day.WeatherForecast = p.forecastForDay(ctx, city, day.Date)
	}
}

// forecastForDay isolates a single weather lookup, converting errors and
// panics into a diagnostic placeholder on the day
func (p *PostProcessor) forecastForDay(ctx context.Context, city, date string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Weather lookup panicked", map[string]interface{}{
				"operation": "enrich_weather",
				"city":      city,
				"date":      date,
				"panic":     fmt.Sprintf("%v", r),
			})
			result = fmt.Sprintf("Weather unavailable for %s on %s", city, date)
		}
	}()

	forecast, err := p.weather.Forecast(ctx, city, date)
	if err != nil {
		p.logger.Warn("Weather lookup failed", map[string]interface{}{
			"operation": "enrich_weather",
			"city":      city,
			"date":      date,
			"error":     err.Error(),
		})
		return fmt.Sprintf("Weather unavailable for %s on %s", city, date)
	}
	return forecast
}

// locationFromGoal is the fallback heuristic: the last word of the goal,
// stripped of punctuation. Good enough for "plan a trip to Tokyo"
func locationFromGoal(goal string) string {
	fields := strings.Fields(goal)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], ".,!?;:'\"")
}

// enrichResearch collects distinct research topics across days into the
// enrichment block and, when a search collaborator is wired, runs a single
// best-effort search over the goal. Search failures leave a note instead
func (p *PostProcessor) enrichResearch(ctx context.Context, plan *GeneratedPlan, r *resolvedRequest) {
	topics := collectTopics(plan, maxResearchTopics)
	if len(topics) == 0 && p.search == nil {
		return
	}

	enrichment := &Enrichment{ResearchTopics: topics}

	if p.search == nil {
		enrichment.WebSearchNote = "Web search unavailable; research topics listed for manual follow-up"
		plan.Enrichment = enrichment
		return
	}

	summary, err := p.searchSafely(ctx, r.goal)
	if err != nil {
		p.logger.Warn("Research search failed", map[string]interface{}{
			"operation": "enrich_research",
			"query":     r.goal,
			"error":     err.Error(),
		})
		enrichment.WebSearchNote = "Web search failed; research topics listed for manual follow-up"
	} else {
		enrichment.ResearchSummary = summary
	}

	plan.Enrichment = enrichment
}

func (p *PostProcessor) searchSafely(ctx context.Context, query string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panicked: %v", r)
		}
	}()
	return p.search.Search(ctx, query)
}

// collectTopics gathers distinct topics across all days, preserving first
// occurrence order, capped at limit
func collectTopics(plan *GeneratedPlan, limit int) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, day := range plan.DailyBreakdown {
		for _, topic := range day.ResearchTopics {
			topic = strings.TrimSpace(topic)
			key := strings.ToLower(topic)
			if topic == "" || seen[key] {
				continue
			}
			seen[key] = true
			topics = append(topics, topic)
			if len(topics) == limit {
				return topics
			}
		}
	}
	return topics
}
