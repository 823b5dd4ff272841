// Package tools contains the enrichment collaborators: the OpenWeatherMap
// forecast client and the Tavily web-search client. Both degrade gracefully
// when unconfigured so that enrichment never blocks plan generation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/planweaver/planweaver/core"
)

// DefaultWeatherBaseURL is the OpenWeatherMap API root
const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// WeatherClient fetches current conditions for a city. Lookups are
// memoized through an optional core.Memory so repeated days in the same
// city hit the API once
type WeatherClient struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	cache    core.Memory
	cacheTTL time.Duration
	logger   core.Logger
}

// WeatherOption configures a WeatherClient
type WeatherOption func(*WeatherClient)

// WithWeatherCache memoizes lookups in the given store
func WithWeatherCache(m core.Memory, ttl time.Duration) WeatherOption {
	return func(w *WeatherClient) {
		w.cache = m
		w.cacheTTL = ttl
	}
}

// WithWeatherLogger sets the logger
func WithWeatherLogger(l core.Logger) WeatherOption {
	return func(w *WeatherClient) { w.logger = l }
}

// WithWeatherHTTPClient replaces the HTTP client, mainly for tests
func WithWeatherHTTPClient(c *http.Client) WeatherOption {
	return func(w *WeatherClient) { w.client = c }
}

// NewWeatherClient creates a weather client from config
func NewWeatherClient(cfg core.WeatherConfig, opts ...WeatherOption) *WeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	w := &WeatherClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cacheTTL: 6 * time.Hour,
		logger:   &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// weatherResponse is the subset of the OpenWeatherMap payload we render
type weatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

// Forecast returns a one-line conditions summary for a city and ISO date.
// Without an API key it returns degraded placeholder text rather than an
// error; transport and API failures return errors for the caller to absorb
func (w *WeatherClient) Forecast(ctx context.Context, city, date string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("%w: city is required", core.ErrValidation)
	}

	if w.apiKey == "" {
		return fmt.Sprintf("Weather for %s on %s unavailable (weather service not configured); plan for variable conditions", city, date), nil
	}

	cacheKey := fmt.Sprintf("weather:%s|%s", strings.ToLower(city), date)
	if w.cache != nil {
		if cached, err := w.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			w.logger.Debug("Weather cache hit", map[string]interface{}{
				"operation": "weather_forecast",
				"city":      city,
				"date":      date,
			})
			return cached, nil
		}
	}

	summary, err := w.fetch(ctx, city, date)
	if err != nil {
		return "", err
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, cacheKey, summary, w.cacheTTL); err != nil {
			w.logger.Debug("Weather cache write failed", map[string]interface{}{
				"operation": "weather_forecast",
				"error":     err.Error(),
			})
		}
	}

	return summary, nil
}

func (w *WeatherClient) fetch(ctx context.Context, city, date string) (string, error) {
	endpoint := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
		w.baseURL, url.QueryEscape(city), url.QueryEscape(w.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating weather request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", core.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("weather API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding weather response: %w", err)
	}

	description := "unknown conditions"
	if len(parsed.Weather) > 0 && parsed.Weather[0].Description != "" {
		description = parsed.Weather[0].Description
	}
	name := parsed.Name
	if name == "" {
		name = city
	}

	return fmt.Sprintf("Weather in %s on %s: %s, %.1f°C, humidity %d%%, wind %.1f m/s",
		name, date, description, parsed.Main.Temp, parsed.Main.Humidity, parsed.Wind.Speed), nil
}
