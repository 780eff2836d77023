package api

import (
	"sort"
	"time"

	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/tutor"
)

// StateView is the read surface for UIs: the full state plus derived
// level, progress and effective mastery.
type StateView struct {
	Profile              tutor.Profile      `json:"profile"`
	XP                   int                `json:"xp"`
	Level                int                `json:"level"`
	LevelProgress        float64            `json:"levelProgress"`
	CompletedLessons     []string           `json:"completedLessons"`
	Concepts             []ConceptView      `json:"concepts"`
	Doubts               []tutor.DoubtEntry `json:"doubts"`
	ConsecutiveSuccesses int                `json:"consecutiveSuccesses"`
	ConsecutiveFailures  int                `json:"consecutiveFailures"`
	IsStruggling         bool               `json:"isStruggling"`
	CurrentLessonID      string             `json:"currentLessonId,omitempty"`
	CurrentStep          int                `json:"currentStep"`
}

// ConceptView is one concept's stored and effective mastery.
type ConceptView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Level         float64    `json:"level"`
	Effective     float64    `json:"effective"`
	Label         string     `json:"label"`
	LastPracticed *time.Time `json:"lastPracticed,omitempty"`
}

// NewStateView derives the view of st at now. Concepts are sorted by id.
func NewStateView(st tutor.State, now time.Time) StateView {
	v := StateView{
		Profile:              st.Profile,
		XP:                   st.XP,
		Level:                st.Level(),
		LevelProgress:        st.LevelProgress(),
		CompletedLessons:     st.CompletedLessons,
		Concepts:             make([]ConceptView, 0, len(st.ConceptMastery)),
		Doubts:               st.Doubts,
		ConsecutiveSuccesses: st.ConsecutiveSuccesses,
		ConsecutiveFailures:  st.ConsecutiveFailures,
		IsStruggling:         st.IsStruggling,
		CurrentLessonID:      st.CurrentLessonID,
		CurrentStep:          st.CurrentStep,
	}
	for _, c := range st.ConceptMastery {
		v.Concepts = append(v.Concepts, newConceptView(c, now))
	}
	sort.Slice(v.Concepts, func(i, j int) bool {
		return v.Concepts[i].ID < v.Concepts[j].ID
	})
	return v
}

func newConceptView(c mastery.ConceptMastery, now time.Time) ConceptView {
	eff := mastery.ApplyDecay(c, now)
	cv := ConceptView{
		ID:        c.ConceptID,
		Name:      c.ConceptName,
		Level:     c.Level,
		Effective: eff,
		Label:     mastery.LabelFor(eff).String(),
	}
	if c.Practiced() {
		t := c.LastPracticed.UTC()
		cv.LastPracticed = &t
	}
	return cv
}
