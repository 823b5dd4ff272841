package ai

import (
	"fmt"
	"time"

	"github.com/planweaver/planweaver/core"
)

// NewClient creates an AI client using registered providers.
// The returned client performs exactly one outbound call per
// GenerateResponse invocation; retry policy belongs to the caller
func NewClient(opts ...AIOption) (core.AIClient, error) {
	// Default configuration
	config := &AIConfig{
		Provider:    string(ProviderAuto),
		Timeout:     60 * time.Second,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	// Apply options
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}

	// Auto-detection when no explicit provider is configured
	if config.Provider == "" || config.Provider == string(ProviderAuto) {
		provider, err := detectBestProvider(config.Logger)
		if err != nil {
			return nil, fmt.Errorf("no AI provider available: %w", err)
		}
		config.Provider = provider
	}

	factory, exists := GetProvider(config.Provider)
	if !exists {
		config.Logger.Error("AI provider not registered", map[string]interface{}{
			"operation":           "ai_provider_lookup",
			"requested_provider":  config.Provider,
			"available_providers": ListProviders(),
			"import_hint":         fmt.Sprintf("Import _ \"github.com/planweaver/planweaver/ai/providers/%s\"", config.Provider),
		})
		return nil, fmt.Errorf("provider '%s' not registered. Import _ \"github.com/planweaver/planweaver/ai/providers/%s\"",
			config.Provider, config.Provider)
	}

	client := factory.Create(config)

	config.Logger.Info("AI client created", map[string]interface{}{
		"operation":   "ai_client_creation",
		"provider":    config.Provider,
		"client_type": fmt.Sprintf("%T", client),
	})

	return client, nil
}

// MustNewClient creates a new AI client and panics on error
func MustNewClient(opts ...AIOption) core.AIClient {
	client, err := NewClient(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create AI client: %v", err))
	}
	return client
}
