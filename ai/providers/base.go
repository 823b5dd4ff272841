// Package providers contains shared plumbing for AI provider clients.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/planweaver/planweaver/core"
)

// BaseClient provides common functionality for all AI providers.
// It performs exactly one outbound call per Execute invocation and never
// retries internally; retry policy is the caller's concern.
type BaseClient struct {
	// HTTP client with hard timeout
	HTTPClient *http.Client

	// Logger for debugging
	Logger core.Logger

	// Telemetry for span creation (optional)
	Telemetry core.Telemetry

	// Default configuration
	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a new base client with defaults.
// The transport is instrumented with otelhttp so outbound calls appear in
// traces when a telemetry provider is installed
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &BaseClient{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger:             logger,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   4096,
	}
}

// StartSpan starts a telemetry span, falling back to a no-op span
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	if b.Telemetry != nil {
		return b.Telemetry.StartSpan(ctx, name)
	}
	return ctx, &core.NoOpSpan{}
}

// Execute performs a single HTTP request and classifies transport failures
// into core sentinel errors. Exceeding the client timeout abandons the call
// and surfaces as core.ErrTimeout
func (b *BaseClient) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, b.classifyTransportError(err)
	}
	return resp, nil
}

// classifyTransportError maps raw transport errors onto the sentinel taxonomy
func (b *BaseClient) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request deadline exceeded: %w", core.ErrTimeout)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("request timed out: %w", core.ErrTimeout)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out: %w", core.ErrTimeout)
	}

	return fmt.Errorf("request failed: %v: %w", err, core.ErrConnectionFailed)
}

// ApplyDefaults applies default values to options if not set
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}

	if options.Model == "" && b.DefaultModel != "" {
		options.Model = b.DefaultModel
	}

	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}

	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}

	if options.SystemPrompt == "" && b.DefaultSystemPrompt != "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}

	return options
}

// HandleError processes API status errors consistently. Transient service
// statuses (429, 5xx) wrap core.ErrConnectionFailed so the retry ladder
// picks them up; client errors stay terminal
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s API error: invalid or missing API key", provider)
	case http.StatusBadRequest:
		return fmt.Errorf("%s API error: invalid request - %s", provider, string(body))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded: %w", provider, core.ErrConnectionFailed)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%s API error: service temporarily unavailable (status %d): %w",
			provider, statusCode, core.ErrConnectionFailed)
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Info("AI request initiated", map[string]interface{}{
		"operation":     "ai_request",
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

// LogResponse logs API responses
func (b *BaseClient) LogResponse(provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.Info("AI response received", map[string]interface{}{
		"operation":         "ai_response",
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration_ms":       duration.Milliseconds(),
		"status":            "success",
	})
}
