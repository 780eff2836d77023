package adaptive

import "testing"

func TestRecommend_StrugglingWins(t *testing.T) {
	rec := Recommend(Input{
		IsStruggling:         true,
		ConsecutiveSuccesses: 5,
		MathComfort:          "visual",
		CodingLevel:          "beginner",
	})
	if rec.Action != ActionSlowDown {
		t.Fatalf("action = %s, want slow_down", rec.Action)
	}
	want := Modifications{MoreVisuals: true, SimplifyLanguage: true, MoreCodeExamples: true}
	if rec.Modifications != want {
		t.Errorf("modifications = %+v, want %+v", rec.Modifications, want)
	}
}

func TestRecommend_SlowDownProfileSensitive(t *testing.T) {
	rec := Recommend(Input{IsStruggling: true, MathComfort: "symbolic", CodingLevel: "advanced"})
	want := Modifications{SimplifyLanguage: true}
	if rec.Modifications != want {
		t.Errorf("modifications = %+v, want %+v", rec.Modifications, want)
	}
}

func TestRecommend_SpeedUp(t *testing.T) {
	for _, streak := range []int{3, 4, 10} {
		rec := Recommend(Input{ConsecutiveSuccesses: streak, MathComfort: "visual", CodingLevel: "beginner"})
		if rec.Action != ActionSpeedUp {
			t.Errorf("streak %d: action = %s, want speed_up", streak, rec.Action)
		}
		want := Modifications{SkipRedundantPractice: true, ShowImplementationEarly: true}
		if rec.Modifications != want {
			t.Errorf("streak %d: modifications = %+v", streak, rec.Modifications)
		}
	}
}

func TestRecommend_Maintain(t *testing.T) {
	for _, streak := range []int{0, 1, 2} {
		rec := Recommend(Input{ConsecutiveSuccesses: streak})
		if rec.Action != ActionMaintain {
			t.Errorf("streak %d: action = %s, want maintain", streak, rec.Action)
		}
		if rec.Modifications != (Modifications{}) {
			t.Errorf("streak %d: expected no modifications, got %+v", streak, rec.Modifications)
		}
		if rec.Reason == "" {
			t.Error("expected a reason")
		}
	}
}

func TestRecommend_DoesNotMutateInput(t *testing.T) {
	in := Input{IsStruggling: true, ConsecutiveSuccesses: 1, MathComfort: "visual"}
	before := in
	_ = Recommend(in)
	if in != before {
		t.Errorf("input changed: %+v -> %+v", before, in)
	}
}

func TestModificationsHints(t *testing.T) {
	m := Modifications{MoreVisuals: true, SimplifyLanguage: true}
	if got := len(m.Hints()); got != 2 {
		t.Errorf("hints = %d, want 2", got)
	}
	if len((Modifications{}).Hints()) != 0 {
		t.Error("expected no hints for empty modifications")
	}
}

func TestNextStepFor(t *testing.T) {
	tests := []struct {
		mastery float64
		want    NextStep
	}{
		{0, NextStepReview},
		{39.99, NextStepReview},
		{40, NextStepPracticeMore},
		{79.99, NextStepPracticeMore},
		{80, NextStepAdvance},
		{100, NextStepAdvance},
	}
	for _, tt := range tests {
		for _, d := range []float64{0, 0.5, 1} {
			if got := NextStepFor(tt.mastery, d); got != tt.want {
				t.Errorf("NextStepFor(%v, %v) = %s, want %s", tt.mastery, d, got, tt.want)
			}
		}
	}
}
