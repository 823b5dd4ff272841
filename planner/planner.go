package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planweaver/planweaver/core"
	"github.com/planweaver/planweaver/resilience"
)

// Planner drives the full pipeline: validate the request, run the retry
// ladder around the generation client, repair and decode the response,
// post-process, and optionally persist
type Planner struct {
	client    core.AIClient
	config    *core.Config
	logger    core.Logger
	telemetry core.Telemetry
	post      *PostProcessor
	store     PlanStore
	breaker   *resilience.CircuitBreaker

	now func() time.Time
}

// PlannerOption configures a Planner
type PlannerOption func(*Planner)

// WithLogger sets the logger
func WithLogger(l core.Logger) PlannerOption {
	return func(p *Planner) { p.logger = l }
}

// WithTelemetry sets the telemetry provider
func WithTelemetry(t core.Telemetry) PlannerOption {
	return func(p *Planner) { p.telemetry = t }
}

// WithPostProcessor replaces the default (collaborator-free) post-processor
func WithPostProcessor(pp *PostProcessor) PlannerOption {
	return func(p *Planner) { p.post = pp }
}

// WithStore wires the persistence port; requests with Save set are
// persisted after post-processing
func WithStore(s PlanStore) PlannerOption {
	return func(p *Planner) { p.store = s }
}

// WithCircuitBreaker guards the generation client with a breaker
func WithCircuitBreaker(cb *resilience.CircuitBreaker) PlannerOption {
	return func(p *Planner) { p.breaker = cb }
}

// New creates a Planner around a generation client and config
func New(client core.AIClient, cfg *core.Config, opts ...PlannerOption) *Planner {
	p := &Planner{
		client:    client,
		config:    cfg,
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.post == nil {
		p.post = NewPostProcessor(WithPostLogger(p.logger), WithPostTelemetry(p.telemetry))
	}
	return p
}

// GeneratePlan produces a complete plan for the request. It fails with a
// *ValidationError for rejected input or a *PlanGenerationError once all
// attempts are exhausted; no other error types escape
func (p *Planner) GeneratePlan(ctx context.Context, req PlanRequest) (*GeneratedPlan, error) {
	resolved, err := resolveRequest(req, p.config, p.now(), p.logger)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()

	ctx, span := p.telemetry.StartSpan(ctx, "planner.generate_plan")
	defer span.End()
	span.SetAttribute("request.id", requestID)
	span.SetAttribute("request.day_count", resolved.dayCount)

	p.logger.Info("Generating plan", map[string]interface{}{
		"operation":  "generate_plan",
		"request_id": requestID,
		"goal":       resolved.goal,
		"day_count":  resolved.dayCount,
		"start_date": resolved.dayDates[0],
	})

	retryConfig := &resilience.RetryConfig{
		MaxAttempts:   p.config.Planner.MaxAttempts,
		InitialDelay:  p.config.Planner.BackoffBase,
		BackoffFactor: 2.0,
		ShouldRetry:   retryableGenerationFailure,
	}

	var (
		plan     *GeneratedPlan
		lastErr  error
		attempts int
	)

	attemptFn := func(attempt int) error {
		attempts = attempt + 1
		decoded, err := p.attemptGeneration(ctx, resolved, requestID, attempt)
		if err != nil {
			lastErr = err
			return err
		}
		plan = decoded
		return nil
	}

	if p.breaker != nil {
		err = resilience.RetryWithCircuitBreaker(ctx, retryConfig, p.breaker, attemptFn)
	} else {
		err = resilience.Retry(ctx, retryConfig, attemptFn)
	}

	if err != nil {
		cause := lastErr
		if cause == nil {
			cause = err
		}
		genErr := &PlanGenerationError{
			Reason:   core.ClassifyFailure(cause),
			Attempts: attempts,
			Err:      err,
		}
		p.logger.Error("Plan generation failed", map[string]interface{}{
			"operation":  "generate_plan",
			"request_id": requestID,
			"attempts":   attempts,
			"reason":     string(genErr.Reason),
			"error":      err.Error(),
		})
		span.RecordError(genErr)
		return nil, genErr
	}

	plan = p.post.Process(ctx, plan, resolved)
	p.persist(ctx, plan, resolved, requestID)

	p.logger.Info("Plan generated", map[string]interface{}{
		"operation":  "generate_plan",
		"request_id": requestID,
		"attempts":   attempts,
		"days":       len(plan.DailyBreakdown),
	})
	span.SetAttribute("plan.attempts", attempts)

	return plan, nil
}

// attemptGeneration runs one attempt end to end: build the prompt at the
// attempt's strictness, call the client once, repair and decode. Every
// failure in this path is retryable
func (p *Planner) attemptGeneration(ctx context.Context, r *resolvedRequest, requestID string, attempt int) (*GeneratedPlan, error) {
	strictness := StrictnessDetailed
	if attempt > 0 {
		strictness = StrictnessTerse
	}

	p.logger.Debug("Generation attempt", map[string]interface{}{
		"operation":  "generate_attempt",
		"request_id": requestID,
		"attempt":    attempt + 1,
		"strictness": strictness.String(),
	})

	prompt := BuildPrompt(r, strictness)

	resp, err := p.client.GenerateResponse(ctx, prompt, &core.AIOptions{
		Model:       p.config.AI.Model,
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("generation returned blank content: %w", core.ErrEmptyResponse)
	}

	parsed, err := RepairJSON(resp.Content)
	if err != nil {
		return nil, err
	}

	return decodePlan(parsed, r)
}

// retryableGenerationFailure treats every attempt-stage failure as
// retryable. Only caller mistakes and cancellation are terminal
func retryableGenerationFailure(err error) bool {
	if core.IsValidationError(err) || core.IsConfigurationError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrContextCanceled) {
		return false
	}
	return true
}

// decodePlan converts the repaired JSON object into a typed plan. A
// response that parses but does not fit the schema counts as malformed, so
// the attempt is retried
func decodePlan(parsed map[string]interface{}, r *resolvedRequest) (*GeneratedPlan, error) {
	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("re-encoding repaired response: %w", core.ErrUnrepairableFormat)
	}

	var plan GeneratedPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("response does not match the plan schema: %w", core.ErrUnrepairableFormat)
	}

	if len(plan.DailyBreakdown) == 0 {
		return nil, fmt.Errorf("response has no daily breakdown: %w", core.ErrUnrepairableFormat)
	}

	if strings.TrimSpace(plan.Goal) == "" {
		plan.Goal = r.goal
	}

	return &plan, nil
}

// persist saves the plan when requested. Save failures are non-fatal: the
// plan is returned without an ID and with a warning attached
func (p *Planner) persist(ctx context.Context, plan *GeneratedPlan, r *resolvedRequest, requestID string) {
	if !r.save || p.store == nil {
		return
	}

	record, err := p.store.Save(ctx, plan.Goal, plan.DailyBreakdown)
	if err != nil {
		p.logger.Warn("Plan generated but not saved", map[string]interface{}{
			"operation":  "persist_plan",
			"request_id": requestID,
			"error":      err.Error(),
		})
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("plan was not saved: %v", err))
		return
	}

	plan.ID = record.ID
}
