package llm

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotConfigured means no provider was selected and no API key was found.
var ErrNotConfigured = errors.New("no LLM provider configured")

// Config holds all LLM provider configuration.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter",
	// "mock", or empty when tutoring answers are disabled.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one call including retries. Default: 30s.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-mini"
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.5-flash"
	BaseURL string // Default: "https://openrouter.ai/api/v1"

	// AppName and AppURL identify the tutor on OpenRouter's dashboards.
	AppName string // Default: "aitutor"
	AppURL  string
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns defaults with no provider selected.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash", AppName: "aitutor"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv reads AITUTOR_* variables. Without AITUTOR_LLM_PROVIDER
// the provider is discovered from the vendors' standard key variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if discovered, ok := DiscoverConfig(); ok {
		cfg = discovered
	}

	if p := os.Getenv("AITUTOR_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}

	setFromEnv(&cfg.Anthropic.APIKey, "AITUTOR_ANTHROPIC_API_KEY")
	setFromEnv(&cfg.Anthropic.Model, "AITUTOR_ANTHROPIC_MODEL")
	setFromEnv(&cfg.OpenAI.APIKey, "AITUTOR_OPENAI_API_KEY")
	setFromEnv(&cfg.OpenAI.Model, "AITUTOR_OPENAI_MODEL")
	setFromEnv(&cfg.OpenAI.BaseURL, "AITUTOR_OPENAI_BASE_URL")
	setFromEnv(&cfg.Gemini.APIKey, "AITUTOR_GEMINI_API_KEY")
	setFromEnv(&cfg.Gemini.Model, "AITUTOR_GEMINI_MODEL")
	setFromEnv(&cfg.OpenRouter.APIKey, "AITUTOR_OPENROUTER_API_KEY")
	setFromEnv(&cfg.OpenRouter.Model, "AITUTOR_OPENROUTER_MODEL")
	setFromEnv(&cfg.OpenRouter.AppURL, "AITUTOR_OPENROUTER_APP_URL")

	if d, err := time.ParseDuration(os.Getenv("AITUTOR_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig checks GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY
// and OPENROUTER_API_KEY in that order.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENROUTER_API_KEY") != "":
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = os.Getenv("OPENROUTER_API_KEY")
	default:
		return Config{}, false
	}
	return cfg, true
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	var missing string
	switch c.Provider {
	case "":
		return ErrNotConfigured
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			missing = "AITUTOR_ANTHROPIC_API_KEY"
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			missing = "AITUTOR_OPENAI_API_KEY"
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			missing = "AITUTOR_GEMINI_API_KEY"
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			missing = "AITUTOR_OPENROUTER_API_KEY"
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if missing != "" {
		return fmt.Errorf("%s is required for the %s provider", missing, c.Provider)
	}
	return nil
}
