package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for PlanWeaver.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// API keys live here rather than in package-level state so that clients are
// constructed from an explicit configuration object.
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithAIProvider("gemini"),
//	    core.WithMaxAttempts(3),
//	)
type Config struct {
	// AI configuration for the generation client
	AI AIClientConfig `yaml:"ai"`

	// Planner configuration
	Planner PlannerConfig `yaml:"planner"`

	// Enrichment collaborator configuration
	Weather WeatherConfig `yaml:"weather"`
	Search  SearchConfig  `yaml:"search"`

	// Memory / cache configuration
	Memory MemoryConfig `yaml:"memory"`

	// Telemetry configuration
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// AIClientConfig configures the generation client adapter
type AIClientConfig struct {
	Provider string        `yaml:"provider" env:"PLANWEAVER_AI_PROVIDER"`
	APIKey   string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"PLANWEAVER_AI_BASE_URL"`
	Model    string        `yaml:"model" env:"PLANWEAVER_AI_MODEL"`
	Timeout  time.Duration `yaml:"timeout" env:"PLANWEAVER_AI_TIMEOUT"`
}

// PlannerConfig configures the retry ladder and plan defaults
type PlannerConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"PLANWEAVER_MAX_ATTEMPTS"`
	BackoffBase     time.Duration `yaml:"backoff_base" env:"PLANWEAVER_BACKOFF_BASE"`
	DefaultDayCount int           `yaml:"default_day_count" env:"PLANWEAVER_DEFAULT_DAYS"`
	MaxDayCount     int           `yaml:"max_day_count" env:"PLANWEAVER_MAX_DAYS"`
}

// WeatherConfig configures the weather enrichment collaborator
type WeatherConfig struct {
	APIKey  string        `yaml:"api_key" env:"OPENWEATHER_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"PLANWEAVER_WEATHER_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"PLANWEAVER_WEATHER_TIMEOUT"`
}

// SearchConfig configures the web-search enrichment collaborator
type SearchConfig struct {
	APIKey  string        `yaml:"api_key" env:"TAVILY_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"PLANWEAVER_SEARCH_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"PLANWEAVER_SEARCH_TIMEOUT"`
}

// MemoryConfig selects the Memory backend used for caching
type MemoryConfig struct {
	Provider string        `yaml:"provider" env:"PLANWEAVER_MEMORY_PROVIDER"` // "memory" or "redis"
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"PLANWEAVER_CACHE_TTL"`
}

// TelemetryConfig configures tracing
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"PLANWEAVER_TELEMETRY_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Exporter string `yaml:"exporter" env:"PLANWEAVER_TELEMETRY_EXPORTER"` // "otlp" or "stdout"
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Option is a functional option for Config
type Option func(*Config)

// NewConfig creates a Config by layering defaults, environment variables,
// and functional options, then validating the result
func NewConfig(opts ...Option) (*Config, error) {
	config := defaultConfig()
	config.applyEnvironment()

	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		AI: AIClientConfig{
			Provider: "auto",
			Model:    "gemini-1.5-flash",
			Timeout:  60 * time.Second,
		},
		Planner: PlannerConfig{
			MaxAttempts:     3,
			BackoffBase:     5 * time.Second,
			DefaultDayCount: 7,
			MaxDayCount:     90,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			Timeout: 30 * time.Second,
		},
		Search: SearchConfig{
			BaseURL: "https://api.tavily.com",
			Timeout: 10 * time.Second,
		},
		Memory: MemoryConfig{
			Provider: "memory",
			CacheTTL: 6 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Exporter: "stdout",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// applyEnvironment overlays environment variables onto the config
func (c *Config) applyEnvironment() {
	setString(&c.AI.Provider, "PLANWEAVER_AI_PROVIDER")
	setString(&c.AI.APIKey, "GEMINI_API_KEY")
	setString(&c.AI.BaseURL, "PLANWEAVER_AI_BASE_URL")
	setString(&c.AI.Model, "PLANWEAVER_AI_MODEL")
	setDuration(&c.AI.Timeout, "PLANWEAVER_AI_TIMEOUT")

	setInt(&c.Planner.MaxAttempts, "PLANWEAVER_MAX_ATTEMPTS")
	setDuration(&c.Planner.BackoffBase, "PLANWEAVER_BACKOFF_BASE")
	setInt(&c.Planner.DefaultDayCount, "PLANWEAVER_DEFAULT_DAYS")
	setInt(&c.Planner.MaxDayCount, "PLANWEAVER_MAX_DAYS")

	setString(&c.Weather.APIKey, "OPENWEATHER_API_KEY")
	setString(&c.Weather.BaseURL, "PLANWEAVER_WEATHER_BASE_URL")
	setDuration(&c.Weather.Timeout, "PLANWEAVER_WEATHER_TIMEOUT")

	setString(&c.Search.APIKey, "TAVILY_API_KEY")
	setString(&c.Search.BaseURL, "PLANWEAVER_SEARCH_BASE_URL")
	setDuration(&c.Search.Timeout, "PLANWEAVER_SEARCH_TIMEOUT")

	setString(&c.Memory.Provider, "PLANWEAVER_MEMORY_PROVIDER")
	setString(&c.Memory.RedisURL, "REDIS_URL")
	setDuration(&c.Memory.CacheTTL, "PLANWEAVER_CACHE_TTL")

	if v := os.Getenv("PLANWEAVER_TELEMETRY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Enabled = b
		}
	}
	setString(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.Exporter, "PLANWEAVER_TELEMETRY_EXPORTER")

	setString(&c.Logging.Level, "LOG_LEVEL")
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Planner.MaxAttempts < 1 {
		return fmt.Errorf("%w: planner.max_attempts must be >= 1, got %d",
			ErrInvalidConfiguration, c.Planner.MaxAttempts)
	}
	if c.Planner.BackoffBase < 0 {
		return fmt.Errorf("%w: planner.backoff_base must not be negative",
			ErrInvalidConfiguration)
	}
	if c.Planner.DefaultDayCount < 1 || c.Planner.DefaultDayCount > c.Planner.MaxDayCount {
		return fmt.Errorf("%w: planner.default_day_count %d outside 1..%d",
			ErrInvalidConfiguration, c.Planner.DefaultDayCount, c.Planner.MaxDayCount)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("%w: ai.timeout must be positive", ErrInvalidConfiguration)
	}
	switch c.Memory.Provider {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: memory.provider must be \"memory\" or \"redis\", got %q",
			ErrInvalidConfiguration, c.Memory.Provider)
	}
	if c.Memory.Provider == "redis" && c.Memory.RedisURL == "" {
		return fmt.Errorf("%w: memory.redis_url required when memory.provider is redis",
			ErrMissingConfiguration)
	}
	return nil
}

// LoadConfigFile reads a YAML (or JSON-compatible YAML) file over the config.
// File values sit between defaults and functional options
func (c *Config) LoadConfigFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalidConfiguration, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// yaml.v3 parses JSON as a YAML subset, so one decoder covers both
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfiguration, path, err)
	}
	return nil
}

// Functional options

// WithAIProvider sets the generation provider ("gemini", "mock", "auto")
func WithAIProvider(provider string) Option {
	return func(c *Config) { c.AI.Provider = provider }
}

// WithAIAPIKey sets the generation service API key
func WithAIAPIKey(key string) Option {
	return func(c *Config) { c.AI.APIKey = key }
}

// WithAIModel sets the generation model
func WithAIModel(model string) Option {
	return func(c *Config) { c.AI.Model = model }
}

// WithAITimeout sets the hard per-attempt generation timeout
func WithAITimeout(timeout time.Duration) Option {
	return func(c *Config) { c.AI.Timeout = timeout }
}

// WithMaxAttempts bounds the retry ladder
func WithMaxAttempts(attempts int) Option {
	return func(c *Config) { c.Planner.MaxAttempts = attempts }
}

// WithBackoffBase sets the base delay between attempts (delay = base * 2^n)
func WithBackoffBase(base time.Duration) Option {
	return func(c *Config) { c.Planner.BackoffBase = base }
}

// WithDefaultDayCount sets the day count used when the request omits one
func WithDefaultDayCount(days int) Option {
	return func(c *Config) { c.Planner.DefaultDayCount = days }
}

// WithWeatherAPIKey sets the weather collaborator API key
func WithWeatherAPIKey(key string) Option {
	return func(c *Config) { c.Weather.APIKey = key }
}

// WithSearchAPIKey sets the web-search collaborator API key
func WithSearchAPIKey(key string) Option {
	return func(c *Config) { c.Search.APIKey = key }
}

// WithRedisURL selects the Redis memory backend
func WithRedisURL(url string) Option {
	return func(c *Config) {
		c.Memory.Provider = "redis"
		c.Memory.RedisURL = url
	}
}

// WithTelemetry enables tracing with the given OTLP endpoint
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		if endpoint != "" {
			c.Telemetry.Exporter = "otlp"
		}
	}
}

// WithLogLevel sets the logger level
func WithLogLevel(level string) Option {
	return func(c *Config) { c.Logging.Level = level }
}

// WithConfigFile loads a config file during NewConfig. A file that fails to
// parse is ignored here; NewConfig validates the merged result
func WithConfigFile(path string) Option {
	return func(c *Config) {
		_ = c.LoadConfigFile(path)
	}
}

// helpers

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
