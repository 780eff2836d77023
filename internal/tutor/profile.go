package tutor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is returned when a profile update carries a value
// outside its enumeration.
var ErrInvalidProfile = errors.New("invalid profile")

// MathComfort is how the learner prefers mathematics to be presented.
type MathComfort string

const (
	MathVisual   MathComfort = "visual"
	MathBalanced MathComfort = "balanced"
	MathSymbolic MathComfort = "symbolic"
)

// CodingLevel is the learner's programming experience.
type CodingLevel string

const (
	CodingBeginner     CodingLevel = "beginner"
	CodingIntermediate CodingLevel = "intermediate"
	CodingAdvanced     CodingLevel = "advanced"
)

// Pace is the learner's preferred speed.
type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

func (m MathComfort) Valid() bool {
	switch m {
	case MathVisual, MathBalanced, MathSymbolic:
		return true
	}
	return false
}

func (c CodingLevel) Valid() bool {
	switch c {
	case CodingBeginner, CodingIntermediate, CodingAdvanced:
		return true
	}
	return false
}

func (p Pace) Valid() bool {
	switch p {
	case PaceSlow, PaceNormal, PaceFast:
		return true
	}
	return false
}

// ParseMathComfort parses a case-insensitive math comfort value.
func ParseMathComfort(s string) (MathComfort, error) {
	m := MathComfort(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: math comfort %q (want visual, balanced or symbolic)", ErrInvalidProfile, s)
	}
	return m, nil
}

// ParseCodingLevel parses a case-insensitive coding level value.
func ParseCodingLevel(s string) (CodingLevel, error) {
	c := CodingLevel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: coding level %q (want beginner, intermediate or advanced)", ErrInvalidProfile, s)
	}
	return c, nil
}

// ParsePace parses a case-insensitive pace value.
func ParsePace(s string) (Pace, error) {
	p := Pace(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: pace %q (want slow, normal or fast)", ErrInvalidProfile, s)
	}
	return p, nil
}

// Profile holds the learner's self-reported preferences.
type Profile struct {
	Name        string      `json:"name"`
	MathComfort MathComfort `json:"mathComfort"`
	CodingLevel CodingLevel `json:"codingLevel"`
	Pace        Pace        `json:"pace"`
}

// DefaultProfile is the profile of a learner who has not set preferences.
func DefaultProfile() Profile {
	return Profile{
		Name:        "Learner",
		MathComfort: MathBalanced,
		CodingLevel: CodingBeginner,
		Pace:        PaceNormal,
	}
}

// ProfileUpdate is a partial profile change. Nil fields are left alone.
type ProfileUpdate struct {
	Name        *string      `json:"name,omitempty"`
	MathComfort *MathComfort `json:"mathComfort,omitempty"`
	CodingLevel *CodingLevel `json:"codingLevel,omitempty"`
	Pace        *Pace        `json:"pace,omitempty"`
}

// Validate rejects empty names and out-of-range enum values.
func (u ProfileUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProfile)
	}
	if u.MathComfort != nil && !u.MathComfort.Valid() {
		return fmt.Errorf("%w: math comfort %q", ErrInvalidProfile, *u.MathComfort)
	}
	if u.CodingLevel != nil && !u.CodingLevel.Valid() {
		return fmt.Errorf("%w: coding level %q", ErrInvalidProfile, *u.CodingLevel)
	}
	if u.Pace != nil && !u.Pace.Valid() {
		return fmt.Errorf("%w: pace %q", ErrInvalidProfile, *u.Pace)
	}
	return nil
}

// apply returns p with the update's set fields applied.
func (u ProfileUpdate) apply(p Profile) Profile {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.MathComfort != nil {
		p.MathComfort = *u.MathComfort
	}
	if u.CodingLevel != nil {
		p.CodingLevel = *u.CodingLevel
	}
	if u.Pace != nil {
		p.Pace = *u.Pace
	}
	return p
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.MathComfort == nil && u.CodingLevel == nil && u.Pace == nil
}
