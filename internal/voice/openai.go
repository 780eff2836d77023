package voice

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIVoice = openai.VoiceAlloy

// OpenAISynthesizer uses the OpenAI speech endpoint.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
}

// NewOpenAISynthesizer creates an OpenAI synthesizer. baseURL may be empty.
func NewOpenAISynthesizer(apiKey, model, baseURL string) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAISynthesizer) Name() string { return "openai" }

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	v := openai.SpeechVoice(voiceID)
	if voiceID == "" {
		v = defaultOpenAIVoice
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          v,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai speech: empty audio")
	}
	return &Audio{Data: data, MIMEType: "audio/mpeg"}, nil
}
