package adaptive

// NextStep is the concept-level recommendation after practice.
type NextStep string

const (
	NextStepReview       NextStep = "review"
	NextStepPracticeMore NextStep = "practice_more"
	NextStepAdvance      NextStep = "advance"
)

// Mastery thresholds for NextStepFor.
const (
	ReviewBelow      = 40.0
	AdvanceAtOrAbove = 80.0
)

// NextStepFor picks the next step from a concept's mastery level.
//
// lessonDifficulty is accepted so callers can pass it through, but the
// thresholds do not depend on it.
func NextStepFor(mastery, lessonDifficulty float64) NextStep {
	_ = lessonDifficulty
	switch {
	case mastery < ReviewBelow:
		return NextStepReview
	case mastery < AdvanceAtOrAbove:
		return NextStepPracticeMore
	default:
		return NextStepAdvance
	}
}
