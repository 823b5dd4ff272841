package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AI.Model != "gemini-1.5-flash" {
		t.Errorf("unexpected default model: %s", cfg.AI.Model)
	}
	if cfg.Planner.MaxAttempts != 3 {
		t.Errorf("unexpected default attempts: %d", cfg.Planner.MaxAttempts)
	}
	if cfg.Planner.BackoffBase != 5*time.Second {
		t.Errorf("unexpected default backoff: %v", cfg.Planner.BackoffBase)
	}
	if cfg.Planner.DefaultDayCount != 7 {
		t.Errorf("unexpected default day count: %d", cfg.Planner.DefaultDayCount)
	}
	if cfg.Memory.Provider != "memory" {
		t.Errorf("unexpected default memory provider: %s", cfg.Memory.Provider)
	}
}

func TestNewConfigEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PLANWEAVER_MAX_ATTEMPTS", "5")
	t.Setenv("PLANWEAVER_AI_MODEL", "gemini-2.0-flash")
	t.Setenv("PLANWEAVER_BACKOFF_BASE", "2s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Planner.MaxAttempts != 5 {
		t.Errorf("env override lost: %d", cfg.Planner.MaxAttempts)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("env override lost: %s", cfg.AI.Model)
	}
	if cfg.Planner.BackoffBase != 2*time.Second {
		t.Errorf("env override lost: %v", cfg.Planner.BackoffBase)
	}
}

func TestNewConfigOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("PLANWEAVER_MAX_ATTEMPTS", "5")

	cfg, err := NewConfig(WithMaxAttempts(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Planner.MaxAttempts != 2 {
		t.Errorf("option should win over env, got %d", cfg.Planner.MaxAttempts)
	}
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(WithMaxAttempts(0))
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}

	_, err = NewConfig(func(c *Config) { c.Memory.Provider = "sqlite" })
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for unknown memory provider, got %v", err)
	}

	_, err = NewConfig(func(c *Config) {
		c.Memory.Provider = "redis"
		c.Memory.RedisURL = ""
	})
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("expected ErrMissingConfiguration for redis without URL, got %v", err)
	}
}

func TestWithRedisURLSelectsRedisProvider(t *testing.T) {
	cfg, err := NewConfig(WithRedisURL("redis://localhost:6379/0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Memory.Provider != "redis" {
		t.Errorf("expected redis provider, got %s", cfg.Memory.Provider)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planweaver.yaml")
	content := []byte("ai:\n  model: gemini-1.5-pro\nplanner:\n  max_attempts: 4\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AI.Model != "gemini-1.5-pro" {
		t.Errorf("file value lost: %s", cfg.AI.Model)
	}
	if cfg.Planner.MaxAttempts != 4 {
		t.Errorf("file value lost: %d", cfg.Planner.MaxAttempts)
	}
}

func TestLoadConfigFileRejectsUnknownExtension(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.LoadConfigFile("config.toml"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
