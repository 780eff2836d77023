package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/aitutor/internal/llm"
)

// ReviewInput describes the concept to quiz.
type ReviewInput struct {
	ConceptID       string
	ConceptName     string
	Mastery         float64
	LessonTitle     string
	AdaptiveContext string
}

// ReviewQuestion is a generated quiz item for a weak concept.
type ReviewQuestion struct {
	ConceptID  string `json:"conceptId"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Hint       string `json:"hint"`
	Difficulty string `json:"difficulty"`
}

// ReviewQuestion generates a review question. Unlike Ask it does not
// supersede other calls, and failures are returned to the caller.
func (t *Tutor) ReviewQuestion(ctx context.Context, in ReviewInput) (*ReviewQuestion, error) {
	if t.provider == nil {
		return nil, llm.ErrNotConfigured
	}
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	resp, err := t.provider.Generate(llm.WithPurpose(ctx, llm.PurposeReview), llm.Request{
		System:      buildSystem(reviewSystemPrompt, in.LessonTitle, in.AdaptiveContext),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildReviewMessage(in)}},
		Schema:      ReviewSchema,
		MaxTokens:   t.review.MaxTokens,
		Temperature: t.review.Temperature,
	})
	if err != nil {
		t.report("review", "error")
		return nil, fmt.Errorf("review question for %s: %w", in.ConceptID, err)
	}

	var q ReviewQuestion
	if err := json.Unmarshal(resp.Content, &q); err != nil {
		t.report("review", "error")
		return nil, fmt.Errorf("parse review question: %w", err)
	}
	q.ConceptID = in.ConceptID
	t.report("review", "ok")
	return &q, nil
}
