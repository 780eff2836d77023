package mastery

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates effective mastery across concepts.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64

	// Labels counts concepts per display label.
	Labels map[Label]int
}

// Summarize computes decayed-level statistics for the given concepts at now.
func Summarize(concepts map[string]ConceptMastery, now time.Time) Summary {
	s := Summary{Labels: make(map[Label]int)}
	if len(concepts) == 0 {
		return s
	}

	levels := make([]float64, 0, len(concepts))
	for _, c := range concepts {
		lvl := ApplyDecay(c, now)
		levels = append(levels, lvl)
		s.Labels[LabelFor(lvl)]++
	}

	s.Count = len(levels)
	s.Mean = stat.Mean(levels, nil)
	if len(levels) > 1 {
		s.StdDev = stat.StdDev(levels, nil)
	}
	s.Min = floats.Min(levels)
	s.Max = floats.Max(levels)
	return s
}

// Weakest returns up to n concepts ordered by ascending effective level.
// Ties are broken by concept ID.
func Weakest(concepts map[string]ConceptMastery, now time.Time, n int) []ConceptMastery {
	out := make([]ConceptMastery, 0, len(concepts))
	for _, c := range concepts {
		c.Level = ApplyDecay(c, now)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ConceptID < out[j].ConceptID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
