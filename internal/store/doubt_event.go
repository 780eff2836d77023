package store

import "context"

func (r *eventRepo) AppendDoubtEvent(ctx context.Context, data DoubtEventData) error {
	return r.appendEvent(ctx, "doubt_events",
		[]string{"doubt_id", "lesson_id", "question_chars", "answer_chars"},
		[]any{data.DoubtID, data.LessonID, data.QuestionChars, data.AnswerChars},
	)
}
