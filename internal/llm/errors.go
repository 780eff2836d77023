package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrRateLimit is a 429. RetryAfter is zero when the provider gave no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("rate limited: %v", e.Err)
	}
	return fmt.Sprintf("rate limited, retry in %s: %v", e.RetryAfter.Round(time.Second), e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrBlocked is a tutoring reply withheld by a safety filter or refused by
// the model. Asking again with the same prompt gets the same answer, so it
// is never retried.
type ErrBlocked struct {
	Reason string
}

func (e *ErrBlocked) Error() string {
	if e.Reason == "" {
		return "LLM reply blocked"
	}
	return "LLM reply blocked: " + e.Reason
}

// ErrInvalidResponse is a reply the tutor cannot use: malformed JSON, a
// schema mismatch or no content at all. Content holds the raw reply when
// there was one.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("unusable LLM reply: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers outages, 5xx and unreachable hosts.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return "LLM provider unavailable: " + e.Err.Error()
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a structured reply cut off at MaxTokens. Content
// is the partial JSON.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("structured reply cut off after %d bytes", len(e.Content))
}
