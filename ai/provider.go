package ai

import (
	"time"

	"github.com/planweaver/planweaver/core"
)

// Provider represents an AI provider type
type Provider string

// Standard provider constants
const (
	ProviderGemini Provider = "gemini"
	ProviderMock   Provider = "mock"
	ProviderAuto   Provider = "auto" // Auto-detect from environment
)

// AIConfig holds configuration for AI client creation
type AIConfig struct {
	// Provider to use
	Provider string

	// API credentials
	APIKey  string
	BaseURL string

	// Connection settings. Timeout is a hard per-call bound; a call that
	// exceeds it is abandoned and surfaces as core.ErrTimeout
	Timeout time.Duration

	// Model configuration
	Model       string
	Temperature float32
	MaxTokens   int

	Logger    core.Logger
	Telemetry core.Telemetry
}

// AIOption configures an AI client
type AIOption func(*AIConfig)

// WithProvider sets the AI provider
func WithProvider(provider string) AIOption {
	return func(c *AIConfig) {
		c.Provider = provider
	}
}

// WithAPIKey sets the API key
func WithAPIKey(key string) AIOption {
	return func(c *AIConfig) {
		c.APIKey = key
	}
}

// WithBaseURL sets the base URL for the API
func WithBaseURL(url string) AIOption {
	return func(c *AIConfig) {
		c.BaseURL = url
	}
}

// WithTimeout sets the hard request timeout
func WithTimeout(timeout time.Duration) AIOption {
	return func(c *AIConfig) {
		c.Timeout = timeout
	}
}

// WithModel sets the model to use
func WithModel(model string) AIOption {
	return func(c *AIConfig) {
		c.Model = model
	}
}

// WithTemperature sets the temperature for generation
func WithTemperature(temp float32) AIOption {
	return func(c *AIConfig) {
		c.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation
func WithMaxTokens(tokens int) AIOption {
	return func(c *AIConfig) {
		c.MaxTokens = tokens
	}
}

// WithLogger sets the logger for AI operations
func WithLogger(logger core.Logger) AIOption {
	return func(c *AIConfig) {
		c.Logger = logger
	}
}

// WithTelemetry sets the telemetry provider for distributed tracing
func WithTelemetry(telemetry core.Telemetry) AIOption {
	return func(c *AIConfig) {
		c.Telemetry = telemetry
	}
}

// FromConfig builds client options from a core.Config
func FromConfig(cfg *core.Config) []AIOption {
	return []AIOption{
		WithProvider(cfg.AI.Provider),
		WithAPIKey(cfg.AI.APIKey),
		WithBaseURL(cfg.AI.BaseURL),
		WithModel(cfg.AI.Model),
		WithTimeout(cfg.AI.Timeout),
	}
}
