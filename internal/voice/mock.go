package voice

import (
	"context"
	"sync"
	"time"
)

// MockSynthesizer returns the text itself as audio. Err and Delay make it
// fail or stall.
type MockSynthesizer struct {
	mu    sync.Mutex
	calls []string
	Err   error
	Delay time.Duration
}

// NewMockSynthesizer creates a MockSynthesizer.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Name() string { return "mock" }

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	err, delay := m.Err, m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return &Audio{Data: []byte(voiceID + ":" + text), MIMEType: "text/plain"}, nil
}

// Calls returns the texts synthesized so far.
func (m *MockSynthesizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// SetDelay changes the stall for later calls.
func (m *MockSynthesizer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delay = d
}
