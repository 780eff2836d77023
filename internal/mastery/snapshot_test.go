package mastery

import (
	"testing"
	"time"

	"github.com/abhisek/aitutor/internal/store"
)

func TestSnapshotRoundTrip(t *testing.T) {
	practiced := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	in := map[string]ConceptMastery{
		"gradients": {ConceptID: "gradients", ConceptName: "Gradients", Level: 57.5, LastPracticed: practiced},
		"loss":      {ConceptID: "loss", ConceptName: "Loss", Level: 0},
	}

	out := FromSnapshot(ToSnapshot(in))
	if len(out) != 2 {
		t.Fatalf("got %d concepts, want 2", len(out))
	}
	g := out["gradients"]
	if g.Level != 57.5 || !g.LastPracticed.Equal(practiced) || g.ConceptName != "Gradients" {
		t.Errorf("gradients = %+v", g)
	}
	if out["loss"].Practiced() {
		t.Error("loss should not be practiced")
	}
}

func TestFromSnapshot_ClampsAndIgnoresBadTime(t *testing.T) {
	bad := "yesterday"
	out := FromSnapshot(map[string]store.ConceptMasteryData{
		"x": {ConceptName: "X", MasteryLevel: 140, LastPracticed: &bad},
	})
	x := out["x"]
	if x.Level != 100 {
		t.Errorf("level = %v, want 100", x.Level)
	}
	if x.Practiced() {
		t.Error("unparseable timestamp should read as never practiced")
	}
	if x.ConceptID != "x" {
		t.Errorf("concept id = %q, want x", x.ConceptID)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	concepts := map[string]ConceptMastery{
		"a": {ConceptID: "a", Level: 95},
		"b": {ConceptID: "b", Level: 45},
		"c": {ConceptID: "c", Level: 30, LastPracticed: now.Add(-5 * 24 * time.Hour)},
	}
	s := Summarize(concepts, now)
	if s.Count != 3 {
		t.Fatalf("count = %d", s.Count)
	}
	// c decays to 25.
	if !approx(s.Mean, (95+45+25)/3.0) {
		t.Errorf("mean = %v", s.Mean)
	}
	if s.Min != 25 || s.Max != 95 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Labels[LabelMaster] != 1 || s.Labels[LabelApprentice] != 1 || s.Labels[LabelNovice] != 1 {
		t.Errorf("labels = %v", s.Labels)
	}

	empty := Summarize(nil, now)
	if empty.Count != 0 || empty.Mean != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestWeakest(t *testing.T) {
	now := time.Now()
	concepts := map[string]ConceptMastery{
		"a": {ConceptID: "a", Level: 80},
		"b": {ConceptID: "b", Level: 10},
		"c": {ConceptID: "c", Level: 10},
		"d": {ConceptID: "d", Level: 50},
	}
	got := Weakest(concepts, now, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"b", "c", "d"}
	for i, id := range want {
		if got[i].ConceptID != id {
			t.Errorf("weakest[%d] = %s, want %s", i, got[i].ConceptID, id)
		}
	}
}
