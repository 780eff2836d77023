package voice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiVoice = "Kore"

// GeminiSynthesizer uses Gemini's audio output modality.
type GeminiSynthesizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSynthesizer creates a Gemini synthesizer.
func NewGeminiSynthesizer(ctx context.Context, apiKey, model string) (*GeminiSynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiSynthesizer{client: client, model: model}, nil
}

func (g *GeminiSynthesizer) Name() string { return "gemini" }

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if voiceID == "" {
		voiceID = defaultGeminiVoice
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceID},
			},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini speech: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini speech: no candidates")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return fromGeminiBlob(part.InlineData.Data, part.InlineData.MIMEType), nil
	}
	return nil, fmt.Errorf("gemini speech: no audio in response")
}

// fromGeminiBlob wraps raw PCM ("audio/L16;codec=pcm;rate=24000") in a
// WAV container so any player can use it.
func fromGeminiBlob(data []byte, mime string) *Audio {
	lower := strings.ToLower(mime)
	if !strings.HasPrefix(lower, "audio/l16") && !strings.Contains(lower, "codec=pcm") {
		return &Audio{Data: data, MIMEType: mime}
	}
	rate := 24000
	for _, param := range strings.Split(lower, ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(param), "rate="); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rate = n
			}
		}
	}
	return &Audio{Data: pcmToWAV(data, rate, 1, 16), MIMEType: "audio/wav"}
}
