// Package adaptive decides how tutoring should adjust to a learner. It is a
// stateless policy over learner signals and profile preferences.
package adaptive

// Action is the pacing recommendation.
type Action string

const (
	ActionSlowDown Action = "slow_down"
	ActionSpeedUp  Action = "speed_up"
	ActionMaintain Action = "maintain"
)

func (a Action) String() string { return string(a) }

// SpeedUpStreak is the number of consecutive successes that counts as
// excelling.
const SpeedUpStreak = 3

// MathComfort and CodingLevel values the engine reacts to.
const (
	MathComfortVisual   = "visual"
	CodingLevelBeginner = "beginner"
)

// Input is the learner signal the engine reads. It is never mutated.
type Input struct {
	IsStruggling         bool
	ConsecutiveSuccesses int
	MathComfort          string
	CodingLevel          string
}

// Modifications are content adjustments attached to a recommendation.
type Modifications struct {
	MoreVisuals             bool `json:"moreVisuals,omitempty"`
	SimplifyLanguage        bool `json:"simplifyLanguage,omitempty"`
	MoreCodeExamples        bool `json:"moreCodeExamples,omitempty"`
	SkipRedundantPractice   bool `json:"skipRedundantPractice,omitempty"`
	ShowImplementationEarly bool `json:"showImplementationEarly,omitempty"`
}

// Hints renders the enabled modifications as short instructions.
func (m Modifications) Hints() []string {
	var hints []string
	if m.MoreVisuals {
		hints = append(hints, "Use more diagrams and visual intuition")
	}
	if m.SimplifyLanguage {
		hints = append(hints, "Use simpler language and shorter sentences")
	}
	if m.MoreCodeExamples {
		hints = append(hints, "Show more small code examples")
	}
	if m.SkipRedundantPractice {
		hints = append(hints, "Skip practice the learner has already shown they know")
	}
	if m.ShowImplementationEarly {
		hints = append(hints, "Show the implementation earlier")
	}
	return hints
}

// Recommendation is the engine's output.
type Recommendation struct {
	Action        Action        `json:"action"`
	Reason        string        `json:"reason"`
	Modifications Modifications `json:"modifications"`
}

// Recommend classifies the learner into a pacing regime. Struggling takes
// priority over a success streak.
func Recommend(in Input) Recommendation {
	switch {
	case in.IsStruggling:
		return Recommendation{
			Action: ActionSlowDown,
			Reason: "The learner failed several challenges in a row.",
			Modifications: Modifications{
				MoreVisuals:      in.MathComfort == MathComfortVisual,
				SimplifyLanguage: true,
				MoreCodeExamples: in.CodingLevel == CodingLevelBeginner,
			},
		}
	case in.ConsecutiveSuccesses >= SpeedUpStreak:
		return Recommendation{
			Action: ActionSpeedUp,
			Reason: "The learner solved several challenges in a row.",
			Modifications: Modifications{
				SkipRedundantPractice:   true,
				ShowImplementationEarly: true,
			},
		}
	default:
		return Recommendation{
			Action: ActionMaintain,
			Reason: "The learner is progressing steadily.",
		}
	}
}
