// Package voice turns lesson text into speech. Narration is best effort:
// when synthesis fails the lesson simply continues in silence.
package voice

import (
	"context"
	"errors"
)

// ErrSuperseded is returned when a newer narration replaced this one.
var ErrSuperseded = errors.New("voice: narration superseded")

// Audio is playable audio.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Synthesizer renders text as speech. An empty voiceID picks the
// synthesizer's default voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*Audio, error)
	Name() string
}
