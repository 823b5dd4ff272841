// Package mock provides a scripted AI provider for testing. Each queued
// step returns either a canned response or an error, letting tests play the
// role of a flaky generation service.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/planweaver/planweaver/ai"
	"github.com/planweaver/planweaver/core"
)

func init() {
	if err := ai.Register(&Factory{}); err != nil {
		panic(fmt.Sprintf("failed to register mock AI provider: %v", err))
	}
}

// Factory creates mock AI clients for testing
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return "mock"
}

// Description returns provider description
func (f *Factory) Description() string {
	return "Mock provider for testing"
}

// DetectEnvironment checks if mock is enabled. Mock is never auto-detected
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	return 0, false
}

// Create creates a new mock client
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	return NewClient()
}

// Step is one scripted generation outcome
type Step struct {
	Content string
	Err     error
}

// Client implements core.AIClient for testing
type Client struct {
	mu        sync.Mutex
	steps     []Step
	CallCount int
	Prompts   []string
}

// NewClient creates a new mock client
func NewClient(steps ...Step) *Client {
	return &Client{steps: steps}
}

// Queue appends scripted outcomes
func (c *Client) Queue(steps ...Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, steps...)
}

// GenerateResponse returns the next scripted outcome
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	c.Prompts = append(c.Prompts, prompt)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(c.steps) == 0 {
		return nil, fmt.Errorf("no scripted responses left: %w", core.ErrEmptyResponse)
	}

	step := c.steps[0]
	c.steps = c.steps[1:]

	if step.Err != nil {
		return nil, step.Err
	}

	model := "mock-model"
	if options != nil && options.Model != "" {
		model = options.Model
	}

	return &core.AIResponse{
		Content:  step.Content,
		Model:    model,
		Provider: "mock",
		Usage: core.TokenUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(step.Content) / 4,
			TotalTokens:      (len(prompt) + len(step.Content)) / 4,
		},
	}, nil
}
