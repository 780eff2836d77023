package voice

import (
	"context"
	"fmt"
	"os"
)

// Config selects and configures a synthesizer.
type Config struct {
	// Provider is "gemini", "openai", "mock" or empty/"none" for silence.
	Provider string
	Voice    string

	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// CacheSize is how many rendered clips are kept. Zero disables caching.
	CacheSize int
}

// DefaultConfig returns the default settings with narration off.
func DefaultConfig() Config {
	return Config{
		GeminiModel: "gemini-2.5-flash-preview-tts",
		OpenAIModel: "tts-1",
		CacheSize:   64,
	}
}

// ConfigFromEnv reads AITUTOR_TTS_PROVIDER and AITUTOR_TTS_VOICE. API keys
// are shared with the chat providers.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = os.Getenv("AITUTOR_TTS_PROVIDER")
	cfg.Voice = os.Getenv("AITUTOR_TTS_VOICE")
	cfg.GeminiAPIKey = firstEnv("AITUTOR_GEMINI_API_KEY", "GEMINI_API_KEY")
	cfg.OpenAIAPIKey = firstEnv("AITUTOR_OPENAI_API_KEY", "OPENAI_API_KEY")
	if m := os.Getenv("AITUTOR_TTS_MODEL"); m != "" {
		cfg.GeminiModel = m
		cfg.OpenAIModel = m
	}
	return cfg
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// NewSynthesizer builds the configured synthesizer. It returns nil, nil
// when narration is off.
func NewSynthesizer(ctx context.Context, cfg Config) (Synthesizer, error) {
	var s Synthesizer
	var err error
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		s, err = NewGeminiSynthesizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		s, err = NewOpenAISynthesizer(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
	case "mock":
		s = NewMockSynthesizer()
	default:
		return nil, fmt.Errorf("unknown TTS provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s synthesizer: %w", cfg.Provider, err)
	}
	if cfg.CacheSize > 0 {
		return NewCachingSynthesizer(s, cfg.CacheSize)
	}
	return s, nil
}
