package api

import (
	"context"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/llm"
)

type askResponse struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
	Cached   bool   `json:"cached"`
	DoubtID  string `json:"doubtId,omitempty"`
}

// ask answers a question in the context of the current lesson and keeps
// it as a doubt. Fallback answers are not kept.
func ask(ctx context.Context, deps Deps, req askRequest) (askResponse, error) {
	lessonID, lessonTitle := currentLesson(deps)
	topic := req.Topic
	if topic == "" {
		topic = lessonTitle
	}

	a := chat.Answer{Text: chat.FallbackAnswer, Fallback: true}
	if deps.Tutor != nil {
		var err error
		a, err = deps.Tutor.Ask(ctx, chat.Request{
			History:         toMessages(req.History),
			Topic:           topic,
			Prompt:          req.Question,
			AdaptiveContext: deps.Store.AdaptiveContext(),
		})
		if err != nil {
			return askResponse{}, err
		}
	}

	resp := askResponse{Answer: a.Text, Fallback: a.Fallback, Cached: a.Cached}
	if !a.Fallback {
		d := deps.Store.AddDoubt(ctx, req.Question, a.Text, lessonID, lessonTitle)
		resp.DoubtID = d.ID
	}
	return resp, nil
}

// evaluate checks an answer against the current lesson.
func evaluate(ctx context.Context, deps Deps, req evaluateRequest) (chat.Evaluation, error) {
	if deps.Tutor == nil {
		return chat.Evaluation{Feedback: chat.FallbackAnswer, Fallback: true}, nil
	}
	_, title := currentLesson(deps)
	return deps.Tutor.Evaluate(ctx, chat.EvalRequest{
		Challenge:       req.Challenge,
		Response:        req.Response,
		Topic:           title,
		AdaptiveContext: deps.Store.AdaptiveContext(),
	})
}

func currentLesson(deps Deps) (id, title string) {
	id = deps.Store.Snapshot().CurrentLessonID
	if l, ok := deps.Course.Lesson(id); ok {
		return id, l.Title
	}
	return id, ""
}

func toMessages(h []historyEntry) []llm.Message {
	msgs := make([]llm.Message, 0, len(h))
	for _, e := range h {
		role := llm.RoleUser
		if e.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: e.Content})
	}
	return msgs
}
