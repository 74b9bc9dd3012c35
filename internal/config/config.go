// Package config loads the process configuration from an optional YAML file
// and TASKLENS_-prefixed environment variables. The resulting Config struct
// is constructed once at startup and passed by reference into each component
// constructor; nothing reads configuration through a process-wide lookup.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Plan generation modes.
const (
	// ModeTwoStage runs a separate vision-identification call before the
	// planning call. No tool use.
	ModeTwoStage = "two_stage"

	// ModeCombined runs a single multimodal planning call, optionally with
	// the tool-call loop.
	ModeCombined = "combined"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	OpenAI OpenAIConfig `koanf:"openai"`
	Serper SerperConfig `koanf:"serper"`
	Plan   PlanConfig   `koanf:"plan"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type OpenAIConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	VisionModel    string `koanf:"vision_model"`
	TextModel      string `koanf:"text_model"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxRetries     int    `koanf:"max_retries"`
}

type SerperConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type PlanConfig struct {
	Mode              string `koanf:"mode"`
	StepCount         int    `koanf:"step_count"`
	ToolUse           bool   `koanf:"tool_use"`
	MaxToolIterations int    `koanf:"max_tool_iterations"`
	PromptTokenBudget int    `koanf:"prompt_token_budget"`
}

// Load reads configuration. path names an optional YAML file; a missing file
// is not an error. Environment variables use the TASKLENS_ prefix with "__"
// separating sections, e.g. TASKLENS_OPENAI__API_KEY.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("server.port", 8000)
	k.Set("openai.base_url", "https://api.openai.com/v1")
	k.Set("openai.vision_model", "gpt-4o")
	k.Set("openai.text_model", "gpt-4o-mini")
	k.Set("openai.timeout_seconds", 60)
	k.Set("openai.max_retries", 3)
	k.Set("serper.base_url", "https://google.serper.dev/search")
	k.Set("plan.mode", ModeCombined)
	k.Set("plan.step_count", 6)
	k.Set("plan.tool_use", true)
	k.Set("plan.max_tool_iterations", 10)
	k.Set("plan.prompt_token_budget", 8000)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Environment variables override file values.
	if err := k.Load(env.Provider("TASKLENS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "TASKLENS_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Plan.Mode != ModeTwoStage && c.Plan.Mode != ModeCombined {
		return fmt.Errorf("plan.mode must be %q or %q, got %q", ModeTwoStage, ModeCombined, c.Plan.Mode)
	}
	// The deployment picks one canonical step count; 5 and 6 are the two
	// supported contracts.
	if c.Plan.StepCount != 5 && c.Plan.StepCount != 6 {
		return fmt.Errorf("plan.step_count must be 5 or 6, got %d", c.Plan.StepCount)
	}
	if c.OpenAI.MaxRetries < 1 {
		return fmt.Errorf("openai.max_retries must be >= 1, got %d", c.OpenAI.MaxRetries)
	}
	if c.Plan.MaxToolIterations < 1 {
		return fmt.Errorf("plan.max_tool_iterations must be >= 1, got %d", c.Plan.MaxToolIterations)
	}
	return nil
}
