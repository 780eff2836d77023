package llm

import (
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider reaches many hosted models through OpenRouter's
// OpenAI-compatible API. Model ids ("vendor/model") are used as given.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting OpenRouter. Requests
// carry the app attribution headers OpenRouter reads.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}

	inner, err := newOpenAIProviderRaw(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, attributionDoer{next: http.DefaultClient, name: cfg.AppName, url: cfg.AppURL})
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

type attributionDoer struct {
	next openai.HTTPDoer
	name string
	url  string
}

func (d attributionDoer) Do(req *http.Request) (*http.Response, error) {
	if d.name != "" {
		req.Header.Set("X-Title", d.name)
	}
	if d.url != "" {
		req.Header.Set("HTTP-Referer", d.url)
	}
	return d.next.Do(req)
}
