package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/planweaver/planweaver/core"
)

// DefaultSearchBaseURL is the Tavily API root
const DefaultSearchBaseURL = "https://api.tavily.com"

// maxSearchResults bounds how many results go into the summary
const maxSearchResults = 5

// SearchClient runs Tavily web searches for plan research enrichment
type SearchClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  core.Logger
}

// SearchOption configures a SearchClient
type SearchOption func(*SearchClient)

// WithSearchLogger sets the logger
func WithSearchLogger(l core.Logger) SearchOption {
	return func(s *SearchClient) { s.logger = l }
}

// WithSearchHTTPClient replaces the HTTP client, mainly for tests
func WithSearchHTTPClient(c *http.Client) SearchOption {
	return func(s *SearchClient) { s.client = c }
}

// NewSearchClient creates a search client from config
func NewSearchClient(cfg core.SearchConfig, opts ...SearchOption) *SearchClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSearchBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &SearchClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns a formatted research summary for the query. Without an
// API key it returns degraded placeholder text rather than an error
func (s *SearchClient) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", core.ErrValidation)
	}

	if s.apiKey == "" {
		return fmt.Sprintf("Web search for %q unavailable (search service not configured)", query), nil
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:        s.apiKey,
		Query:         query,
		SearchDepth:   "basic",
		MaxResults:    maxSearchResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return "", fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", core.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	return formatSearchResults(query, &parsed), nil
}

// formatSearchResults renders the answer plus a numbered result list
func formatSearchResults(query string, parsed *searchResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Search results for %q:\n", query)
	if parsed.Answer != "" {
		fmt.Fprintf(&b, "%s\n", parsed.Answer)
	}

	count := 0
	for _, r := range parsed.Results {
		if count == maxSearchResults {
			break
		}
		count++
		fmt.Fprintf(&b, "%d. %s (%s)\n", count, r.Title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(r.Content, 200))
		}
	}

	if parsed.Answer == "" && count == 0 {
		b.WriteString("No results found.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
