package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planweaver/planweaver/ai/providers"
	"github.com/planweaver/planweaver/core"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel matches the model the planning prompts are tuned for
	DefaultModel = "gemini-1.5-flash"
)

// extractor probes one response shape for usable text. Extractors are tried
// in order; the first non-blank result wins
type extractor struct {
	name    string
	extract func(*GeminiResponse) string
}

// extractors is the ordered list of response-shape strategies
var extractors = []extractor{
	{
		name: "candidate_parts",
		extract: func(r *GeminiResponse) string {
			if len(r.Candidates) == 0 {
				return ""
			}
			var sb strings.Builder
			for _, part := range r.Candidates[0].Content.Parts {
				sb.WriteString(part.Text)
			}
			return sb.String()
		},
	},
	{
		name: "candidate_output",
		extract: func(r *GeminiResponse) string {
			if len(r.Candidates) == 0 {
				return ""
			}
			return r.Candidates[0].Output
		},
	},
	{
		name: "top_level_text",
		extract: func(r *GeminiResponse) string {
			return r.Text
		},
	},
}

// Client implements core.AIClient for Google Gemini
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates a new Gemini client with configuration
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(60*time.Second, logger)
	base.DefaultModel = DefaultModel

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// GenerateResponse generates a response using Gemini's native GenerateContent
// API. Exactly one outbound call is made; failures are classified into the
// core sentinel taxonomy for the caller's retry policy
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()

	span.SetAttribute("ai.provider", "gemini")
	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		c.Logger.Error("Gemini request failed - API key not configured", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "gemini",
			"error":     "api_key_missing",
		})
		err := fmt.Errorf("gemini API key not configured: %w", core.ErrMissingConfiguration)
		span.RecordError(err)
		return nil, err
	}

	options = c.ApplyDefaults(options)
	span.SetAttribute("ai.model", options.Model)

	c.LogRequest("gemini", options.Model, prompt)
	startTime := time.Now()

	contents := []Content{
		{
			Role: "user",
			Parts: []Part{
				{Text: prompt},
			},
		},
	}

	reqBody := GeminiRequest{
		Contents: contents,
		GenerationConfig: &GenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}

	if options.SystemPrompt != "" {
		reqBody.SystemInstruction = &SystemInstruction{
			Parts: []Part{
				{Text: options.SystemPrompt},
			},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Format: /models/{model}:generateContent?key={api_key}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, options.Model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Execute(ctx, req)
	if err != nil {
		c.Logger.Error("Gemini request failed - send error", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "gemini",
			"error":     err.Error(),
			"phase":     "request_execution",
		})
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %v: %w", err, core.ErrConnectionFailed)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("Gemini request failed - API error", map[string]interface{}{
			"operation":   "ai_request_error",
			"provider":    "gemini",
			"status_code": resp.StatusCode,
			"phase":       "api_response",
		})
		apiErr := c.HandleError(resp.StatusCode, body, "Gemini")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		c.Logger.Error("Gemini request failed - parse response error", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "gemini",
			"error":     err.Error(),
			"phase":     "response_parse",
		})
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response envelope: %v: %w", err, core.ErrEmptyResponse)
	}

	content, shape := extractText(&geminiResp)
	if content == "" {
		c.Logger.Error("Gemini request failed - empty response", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "gemini",
			"error":     "no_text_content",
			"phase":     "response_validation",
		})
		emptyErr := fmt.Errorf("no usable text in Gemini response: %w", core.ErrEmptyResponse)
		span.RecordError(emptyErr)
		return nil, emptyErr
	}
	span.SetAttribute("ai.response_shape", shape)

	result := &core.AIResponse{
		Content:  content,
		Model:    options.Model,
		Provider: "gemini",
		Usage: core.TokenUsage{
			PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
		},
	}

	span.SetAttribute("ai.prompt_tokens", result.Usage.PromptTokens)
	span.SetAttribute("ai.completion_tokens", result.Usage.CompletionTokens)
	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)
	span.SetAttribute("ai.response_length", len(result.Content))

	c.LogResponse("gemini", result.Model, result.Usage, time.Since(startTime))

	return result, nil
}

// extractText tries each response-shape strategy in order and returns the
// first non-blank text plus the shape name that produced it
func extractText(resp *GeminiResponse) (string, string) {
	for _, e := range extractors {
		if text := strings.TrimSpace(e.extract(resp)); text != "" {
			return text, e.name
		}
	}
	return "", ""
}
