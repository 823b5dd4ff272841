package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/planweaver/planweaver/core"
)

func geminiServer(t *testing.T, hits *int, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected key query param, got %q", r.URL.Query().Get("key"))
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateResponseCandidateParts(t *testing.T) {
	hits := 0
	server := geminiServer(t, &hits, http.StatusOK, `{
		"candidates": [{"content": {"parts": [{"text": "part one "}, {"text": "part two"}]}}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 20, "totalTokenCount": 30}
	}`)

	client := NewClient("test-key", server.URL, nil)
	resp, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "part one part two" {
		t.Errorf("expected concatenated parts, got %q", resp.Content)
	}
	if resp.Provider != "gemini" || resp.Model != DefaultModel {
		t.Errorf("unexpected metadata: %+v", resp)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if hits != 1 {
		t.Errorf("expected exactly one outbound call, got %d", hits)
	}
}

func TestGenerateResponseLegacyShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "candidate output field",
			body: `{"candidates": [{"output": "legacy text"}]}`,
			want: "legacy text",
		},
		{
			name: "top-level text field",
			body: `{"text": "bare text"}`,
			want: "bare text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := 0
			server := geminiServer(t, &hits, http.StatusOK, tt.body)

			client := NewClient("test-key", server.URL, nil)
			resp, err := client.GenerateResponse(context.Background(), "prompt", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != tt.want {
				t.Errorf("expected %q, got %q", tt.want, resp.Content)
			}
		})
	}
}

func TestGenerateResponseExtractorOrder(t *testing.T) {
	// When multiple shapes carry text, candidate parts win
	hits := 0
	server := geminiServer(t, &hits, http.StatusOK, `{
		"candidates": [{"content": {"parts": [{"text": "modern"}]}, "output": "legacy"}],
		"text": "bare"
	}`)

	client := NewClient("test-key", server.URL, nil)
	resp, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "modern" {
		t.Errorf("expected the candidate_parts shape to win, got %q", resp.Content)
	}
}

func TestGenerateResponseNoUsableText(t *testing.T) {
	hits := 0
	server := geminiServer(t, &hits, http.StatusOK, `{"candidates": [{"content": {"parts": [{"text": "   "}]}}]}`)

	client := NewClient("test-key", server.URL, nil)
	_, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if !errors.Is(err, core.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerateResponseEnvelopeParseFailure(t *testing.T) {
	hits := 0
	server := geminiServer(t, &hits, http.StatusOK, "not json at all")

	client := NewClient("test-key", server.URL, nil)
	_, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if !errors.Is(err, core.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse for unparseable envelope, got %v", err)
	}
}

func TestGenerateResponseStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited is retryable", http.StatusTooManyRequests, true},
		{"server error is retryable", http.StatusInternalServerError, true},
		{"bad gateway is retryable", http.StatusBadGateway, true},
		{"unauthorized is terminal", http.StatusUnauthorized, false},
		{"bad request is terminal", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := 0
			server := geminiServer(t, &hits, tt.status, `{"error": {"message": "nope"}}`)

			client := NewClient("test-key", server.URL, nil)
			_, err := client.GenerateResponse(context.Background(), "prompt", nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := core.IsRetryable(err); got != tt.retryable {
				t.Errorf("status %d: retryable = %v, want %v (err: %v)", tt.status, got, tt.retryable, err)
			}
			if hits != 1 {
				t.Errorf("adapter must not retry internally, got %d calls", hits)
			}
		})
	}
}

func TestGenerateResponseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-key", server.URL, nil)
	client.HTTPClient.Timeout = 20 * time.Millisecond

	_, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGenerateResponseConnectionRefused(t *testing.T) {
	client := NewClient("test-key", "http://127.0.0.1:1", nil)

	_, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if !errors.Is(err, core.ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

func TestGenerateResponseMissingAPIKey(t *testing.T) {
	client := NewClient("", "", nil)

	_, err := client.GenerateResponse(context.Background(), "prompt", nil)
	if !errors.Is(err, core.ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
}

func TestGenerateResponseSendsSystemPrompt(t *testing.T) {
	var captured GeminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-key", server.URL, nil)
	_, err := client.GenerateResponse(context.Background(), "user prompt", &core.AIOptions{
		SystemPrompt: "you are a planner",
		Temperature:  0.2,
		MaxTokens:    512,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "you are a planner" {
		t.Error("system prompt not carried in the request body")
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens != 512 {
		t.Error("generation config not carried in the request body")
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "user prompt" {
		t.Error("user prompt not carried in the request body")
	}
}
