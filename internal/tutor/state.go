package tutor

import (
	"time"

	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/store"
)

// XPPerLevel is the experience needed to gain one level.
const XPPerLevel = 500

// StruggleThreshold is the number of consecutive failed attempts after
// which the learner is considered struggling.
const StruggleThreshold = 3

// DoubtEntry is a question the learner asked and the answer they got.
// Entries are immutable once recorded.
type DoubtEntry struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	LessonID    string    `json:"lessonId"`
	LessonTitle string    `json:"lessonTitle"`
	Timestamp   time.Time `json:"timestamp"`
}

// State is the learner's full progress aggregate.
type State struct {
	Profile              Profile
	XP                   int
	CompletedLessons     []string
	ConceptMastery       map[string]mastery.ConceptMastery
	Doubts               []DoubtEntry
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
	IsStruggling         bool
	CurrentLessonID      string
	CurrentStep          int

	// Timer bookkeeping. Not persisted.
	StepStartedAt  time.Time
	LastActivityAt time.Time
}

// DefaultState is the state of a brand-new learner.
func DefaultState() State {
	return State{
		Profile:          DefaultProfile(),
		CompletedLessons: []string{},
		ConceptMastery:   make(map[string]mastery.ConceptMastery),
		Doubts:           []DoubtEntry{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.CompletedLessons = append([]string{}, s.CompletedLessons...)
	c.Doubts = append([]DoubtEntry{}, s.Doubts...)
	c.ConceptMastery = make(map[string]mastery.ConceptMastery, len(s.ConceptMastery))
	for k, v := range s.ConceptMastery {
		c.ConceptMastery[k] = v
	}
	return c
}

// Level derives the learner level from XP, starting at 1.
func (s State) Level() int {
	return LevelFor(s.XP)
}

// LevelProgress is the fraction of the current level already earned.
func (s State) LevelProgress() float64 {
	return LevelProgressFor(s.XP)
}

// LevelFor returns floor(xp/XPPerLevel)+1.
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// LevelProgressFor returns (xp mod XPPerLevel)/XPPerLevel.
func LevelProgressFor(xp int) float64 {
	if xp < 0 {
		xp = 0
	}
	return float64(xp%XPPerLevel) / XPPerLevel
}

// IsCompleted reports whether a lesson has been completed.
func (s State) IsCompleted(lessonID string) bool {
	for _, id := range s.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// ToSnapshot converts the state to its persisted layout.
func (s State) ToSnapshot() *store.TutorSnapshotData {
	doubts := make([]store.DoubtData, len(s.Doubts))
	for i, d := range s.Doubts {
		doubts[i] = store.DoubtData{
			ID:          d.ID,
			Question:    d.Question,
			Answer:      d.Answer,
			LessonID:    d.LessonID,
			LessonTitle: d.LessonTitle,
			Timestamp:   d.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return &store.TutorSnapshotData{
		Profile: store.ProfileData{
			Name:        s.Profile.Name,
			MathComfort: string(s.Profile.MathComfort),
			CodingLevel: string(s.Profile.CodingLevel),
			Pace:        string(s.Profile.Pace),
		},
		XP:                   s.XP,
		CompletedLessons:     append([]string{}, s.CompletedLessons...),
		ConceptMastery:       mastery.ToSnapshot(s.ConceptMastery),
		Doubts:               doubts,
		ConsecutiveSuccesses: s.ConsecutiveSuccesses,
		ConsecutiveFailures:  s.ConsecutiveFailures,
		IsStruggling:         s.IsStruggling,
		CurrentLessonID:      s.CurrentLessonID,
		CurrentStep:          s.CurrentStep,
	}
}

// StateFromSnapshot restores state from its persisted layout. Invalid
// profile values fall back to defaults and duplicate lesson ids are
// dropped, so a hand-edited or foreign snapshot still loads.
func StateFromSnapshot(d *store.TutorSnapshotData) State {
	s := DefaultState()
	if d == nil {
		return s
	}

	if d.Profile.Name != "" {
		s.Profile.Name = d.Profile.Name
	}
	if m, err := ParseMathComfort(d.Profile.MathComfort); err == nil {
		s.Profile.MathComfort = m
	}
	if c, err := ParseCodingLevel(d.Profile.CodingLevel); err == nil {
		s.Profile.CodingLevel = c
	}
	if p, err := ParsePace(d.Profile.Pace); err == nil {
		s.Profile.Pace = p
	}

	if d.XP > 0 {
		s.XP = d.XP
	}

	seen := make(map[string]bool, len(d.CompletedLessons))
	for _, id := range d.CompletedLessons {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s.CompletedLessons = append(s.CompletedLessons, id)
	}

	if d.ConceptMastery != nil {
		s.ConceptMastery = mastery.FromSnapshot(d.ConceptMastery)
	}

	for _, dd := range d.Doubts {
		ts, _ := time.Parse(time.RFC3339Nano, dd.Timestamp)
		s.Doubts = append(s.Doubts, DoubtEntry{
			ID:          dd.ID,
			Question:    dd.Question,
			Answer:      dd.Answer,
			LessonID:    dd.LessonID,
			LessonTitle: dd.LessonTitle,
			Timestamp:   ts,
		})
	}

	s.ConsecutiveSuccesses = max(d.ConsecutiveSuccesses, 0)
	s.ConsecutiveFailures = max(d.ConsecutiveFailures, 0)
	s.IsStruggling = d.IsStruggling
	s.CurrentLessonID = d.CurrentLessonID
	s.CurrentStep = max(d.CurrentStep, 0)
	return s
}
