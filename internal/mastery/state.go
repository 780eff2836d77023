package mastery

import "time"

// Score bounds for a concept's mastery level.
const (
	MinLevel = 0.0
	MaxLevel = 100.0
)

// DecayRate is the fraction of a point lost per day without practice,
// scaled by ten when applied.
const DecayRate = 0.1

// ConceptMastery is the per-concept mastery record.
type ConceptMastery struct {
	ConceptID   string
	ConceptName string

	// Level is always within [MinLevel, MaxLevel].
	Level float64

	// LastPracticed is the zero time when the concept was never practiced.
	LastPracticed time.Time
}

// Practiced reports whether the concept has ever been practiced.
func (c ConceptMastery) Practiced() bool {
	return !c.LastPracticed.IsZero()
}

// Label classifies a mastery level for display.
type Label string

const (
	LabelNovice       Label = "Novice"
	LabelApprentice   Label = "Apprentice"
	LabelPractitioner Label = "Practitioner"
	LabelMaster       Label = "Master"
)

func (l Label) String() string { return string(l) }
