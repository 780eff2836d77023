// Package llm talks to the text-generation services that power tutoring
// answers, answer checks and review questions.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider generates a reply for a tutoring request.
type Provider interface {
	// Generate sends req and returns the reply. With req.Schema set the
	// reply is JSON validated against it; otherwise it is the reply text
	// encoded as a JSON string.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured to use.
	ModelID() string
}

// Request is one call to a provider.
type Request struct {
	// System carries the tutor persona and the learner's adaptive context.
	System string

	// Messages is the conversation so far, oldest first, ending with the
	// learner's turn.
	Messages []Message

	// Schema, when set, asks for structured output.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero means the provider default.
	Temperature float64
}

// Message is a single turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured replies. Name is kebab-case,
// e.g. "review-question".
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a provider reply.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end", "max_tokens", "blocked" or "error"
}

// Text returns the reply as plain text. A JSON string is decoded; anything
// else is returned verbatim.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Content, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(r.Content))
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// TextContent encodes free text as reply content, a JSON string, so
// Content is always valid JSON.
func TextContent(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return b
}
