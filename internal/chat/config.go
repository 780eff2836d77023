package chat

import "time"

// FallbackAnswer is shown when the tutor could not produce an answer.
const FallbackAnswer = "Sorry, I couldn't come up with an answer right now. Let's keep going and try asking again in a moment."

// BlockedAnswer replaces a reply the provider withheld.
const BlockedAnswer = "I can't help with that one here. Try asking about the lesson in a different way."

// Config holds chat generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64

	// Timeout bounds one answer including retries.
	Timeout time.Duration

	// HistoryTurns caps how many prior turns are sent. Older turns are
	// dropped first.
	HistoryTurns int

	// CacheTTL keeps identical answers around. Zero disables the cache.
	CacheTTL time.Duration
}

// DefaultConfig returns the standard chat settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    700,
		Temperature:  0.4,
		Timeout:      30 * time.Second,
		HistoryTurns: 12,
		CacheTTL:     10 * time.Minute,
	}
}

// ReviewConfig holds review question settings.
type ReviewConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultReviewConfig returns the standard review question settings.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		MaxTokens:   400,
		Temperature: 0.6,
	}
}
