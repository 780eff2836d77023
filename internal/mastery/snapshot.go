package mastery

import (
	"time"

	"github.com/abhisek/aitutor/internal/store"
)

// ToSnapshot converts concept records to their persisted layout.
func ToSnapshot(concepts map[string]ConceptMastery) map[string]store.ConceptMasteryData {
	out := make(map[string]store.ConceptMasteryData, len(concepts))
	for id, c := range concepts {
		d := store.ConceptMasteryData{
			ConceptName:  c.ConceptName,
			MasteryLevel: c.Level,
		}
		if c.Practiced() {
			s := c.LastPracticed.UTC().Format(time.RFC3339Nano)
			d.LastPracticed = &s
		}
		out[id] = d
	}
	return out
}

// FromSnapshot restores concept records from their persisted layout.
// Levels are re-clamped and unparseable timestamps are treated as never
// practiced.
func FromSnapshot(data map[string]store.ConceptMasteryData) map[string]ConceptMastery {
	out := make(map[string]ConceptMastery, len(data))
	for id, d := range data {
		c := ConceptMastery{
			ConceptID:   id,
			ConceptName: d.ConceptName,
			Level:       Clamp(d.MasteryLevel),
		}
		if d.LastPracticed != nil {
			if t, err := time.Parse(time.RFC3339Nano, *d.LastPracticed); err == nil {
				c.LastPracticed = t
			}
		}
		out[id] = c
	}
	return out
}
