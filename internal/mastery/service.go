package mastery

import "time"

// UpdateMastery returns the new mastery level after a practice outcome.
//
// A success gains 10*difficulty scaled by the remaining headroom plus a flat
// 5 points, so gains shrink as the level approaches the ceiling. A failure
// loses 5*(1-difficulty): missing a hard problem costs less than missing an
// easy one. The result is clamped to [MinLevel, MaxLevel]; out-of-range
// inputs are tolerated.
func UpdateMastery(current float64, success bool, difficulty float64) float64 {
	var delta float64
	if success {
		delta = 10*difficulty*((MaxLevel-current)/MaxLevel) + 5
	} else {
		delta = -5 * (1 - difficulty)
	}
	return Clamp(current + delta)
}

// ApplyDecay returns the effective level of a concept at now. Concepts that
// were never practiced do not decay. Decay is linear in elapsed days and
// never goes below MinLevel.
func ApplyDecay(c ConceptMastery, now time.Time) float64 {
	if !c.Practiced() {
		return c.Level
	}
	days := DaysSince(c.LastPracticed, now)
	decayed := c.Level - days*DecayRate*10
	if decayed < MinLevel {
		return MinLevel
	}
	return decayed
}

// DaysSince returns fractional days elapsed between t and now.
// A t in the future counts as zero elapsed time.
func DaysSince(t, now time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// Clamp bounds a level to [MinLevel, MaxLevel].
func Clamp(level float64) float64 {
	switch {
	case level < MinLevel:
		return MinLevel
	case level > MaxLevel:
		return MaxLevel
	default:
		return level
	}
}
