package curriculum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCourse(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default course: %v", err)
	}
	if len(c.Lessons) == 0 {
		t.Fatal("expected lessons")
	}
	l, ok := c.Lesson("gradient-descent")
	if !ok {
		t.Fatal("expected gradient-descent lesson")
	}
	if l.XP != 200 || len(l.Steps) != 4 {
		t.Errorf("lesson = %+v", l)
	}

	next, ok := c.Next("what-is-ml")
	if !ok || next.ID != "linear-regression" {
		t.Errorf("next = %q, %v", next.ID, ok)
	}
	if _, ok := c.Next("neural-networks"); ok {
		t.Error("last lesson should have no next")
	}
}

func TestConcepts(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	concepts := c.Concepts()
	seen := map[string]bool{}
	for i, cc := range concepts {
		if seen[cc.ID] {
			t.Errorf("duplicate concept %s", cc.ID)
		}
		seen[cc.ID] = true
		if i > 0 && concepts[i-1].ID > cc.ID {
			t.Error("concepts not sorted")
		}
	}
	if c.ConceptName("gradients") != "Gradients" {
		t.Errorf("concept name = %q", c.ConceptName("gradients"))
	}
	if c.ConceptName("unknown") != "unknown" {
		t.Error("unknown concept should fall back to id")
	}
}

func TestFirstIncomplete(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	l, ok := c.FirstIncomplete([]string{"what-is-ml"})
	if !ok || l.ID != "linear-regression" {
		t.Errorf("first incomplete = %q", l.ID)
	}
	all := make([]string, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		all = append(all, l.ID)
	}
	if _, ok := c.FirstIncomplete(all); ok {
		t.Error("expected no incomplete lesson")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"duplicate id":   "lessons:\n  - id: a\n  - id: a\n",
		"missing id":     "lessons:\n  - title: x\n",
		"bad difficulty": "lessons:\n  - id: a\n    difficulty: 2\n",
		"negative xp":    "lessons:\n  - id: a\n    xp: -1\n",
		"not yaml":       "lessons: [",
	}
	for name, src := range tests {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.yaml")
	src := "title: Mini\nlessons:\n  - id: one\n    title: One\n    xp: 10\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Title != "Mini" || len(c.Lessons) != 1 {
		t.Errorf("course = %+v", c)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
