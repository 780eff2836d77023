package tutor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/mastery"
)

// Limits for the adaptive context summary.
const (
	contextWeakConcepts   = 3
	contextStrongConcepts = 3
	contextRecentDoubts   = 3
)

// AdaptiveContext renders the learner state as plain text for inclusion
// in a tutoring prompt.
func (s *Store) AdaptiveContext() string {
	s.mu.Lock()
	st := s.state.Clone()
	now := s.clock.Now()
	s.mu.Unlock()

	return renderContext(st, now)
}

func renderContext(st State, now time.Time) string {
	var b strings.Builder

	p := st.Profile
	fmt.Fprintf(&b, "Learner: %s\n", p.Name)
	fmt.Fprintf(&b, "Math comfort: %s. Coding level: %s. Preferred pace: %s.\n",
		p.MathComfort, p.CodingLevel, p.Pace)
	fmt.Fprintf(&b, "Level %d (%d XP), %d lesson(s) completed.\n",
		st.Level(), st.XP, len(st.CompletedLessons))

	if st.CurrentLessonID != "" {
		fmt.Fprintf(&b, "Current lesson: %s, step %d.\n", st.CurrentLessonID, st.CurrentStep+1)
	}

	switch {
	case st.IsStruggling:
		fmt.Fprintf(&b, "The learner is struggling: %d failed attempts in a row.\n", st.ConsecutiveFailures)
	case st.ConsecutiveSuccesses > 0:
		fmt.Fprintf(&b, "The learner has %d successful attempts in a row.\n", st.ConsecutiveSuccesses)
	}

	rec := recommend(st)
	fmt.Fprintf(&b, "Pacing: %s.\n", rec.Action)
	for _, h := range rec.Modifications.Hints() {
		fmt.Fprintf(&b, "- %s\n", h)
	}

	if len(st.ConceptMastery) > 0 {
		ranked := mastery.Weakest(st.ConceptMastery, now, -1)

		var weak, strong []string
		for _, c := range ranked {
			if c.Level < adaptive.ReviewBelow && len(weak) < contextWeakConcepts {
				weak = append(weak, conceptSummary(c))
			}
		}
		for i := len(ranked) - 1; i >= 0; i-- {
			c := ranked[i]
			if c.Level >= adaptive.AdvanceAtOrAbove && len(strong) < contextStrongConcepts {
				strong = append(strong, conceptSummary(c))
			}
		}
		if len(weak) > 0 {
			fmt.Fprintf(&b, "Needs review: %s.\n", strings.Join(weak, ", "))
		}
		if len(strong) > 0 {
			fmt.Fprintf(&b, "Strong in: %s.\n", strings.Join(strong, ", "))
		}
	}

	if n := len(st.Doubts); n > 0 {
		recent := append([]DoubtEntry{}, st.Doubts...)
		sort.SliceStable(recent, func(i, j int) bool {
			return recent[i].Timestamp.After(recent[j].Timestamp)
		})
		if len(recent) > contextRecentDoubts {
			recent = recent[:contextRecentDoubts]
		}
		b.WriteString("Recent questions:\n")
		for _, d := range recent {
			fmt.Fprintf(&b, "- %s\n", d.Question)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func conceptSummary(c mastery.ConceptMastery) string {
	return fmt.Sprintf("%s (%.0f%%, %s)", c.ConceptName, c.Level, mastery.LabelFor(c.Level))
}
