package study

import (
	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/voice"
)

// answerMsg carries the tutor's reply to a question.
type answerMsg struct {
	Question string
	Answer   chat.Answer
	Err      error
}

// reviewMsg carries a generated review question.
type reviewMsg struct {
	ConceptID string
	Question  *chat.ReviewQuestion
	Err       error
}

// evalMsg carries the verdict on a review answer.
type evalMsg struct {
	ConceptID  string
	Evaluation chat.Evaluation
	Err        error
}

// stuckMsg is sent by the watcher when the learner idles on a step.
type stuckMsg tutor.StuckEvent

// narrationMsg reports a finished narration. Audio is nil when narration
// was skipped.
type narrationMsg struct {
	Step  int
	Audio *voice.Audio
}
