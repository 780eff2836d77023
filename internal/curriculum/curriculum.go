// Package curriculum loads the static lesson catalogue.
package curriculum

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed course.yaml
var defaultCourse []byte

// Concept is a unit of knowledge tracked for mastery.
type Concept struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Step is one screen of a lesson.
type Step struct {
	Title     string `yaml:"title" json:"title"`
	Narration string `yaml:"narration" json:"narration"`
}

// Lesson is a unit of content with an XP reward.
type Lesson struct {
	ID         string    `yaml:"id" json:"id"`
	Title      string    `yaml:"title" json:"title"`
	Difficulty float64   `yaml:"difficulty" json:"difficulty"`
	XP         int       `yaml:"xp" json:"xp"`
	Concepts   []Concept `yaml:"concepts" json:"concepts"`
	Steps      []Step    `yaml:"steps" json:"steps"`
}

// Course is an ordered list of lessons.
type Course struct {
	Title   string   `yaml:"title" json:"title"`
	Lessons []Lesson `yaml:"lessons" json:"lessons"`

	byID map[string]int
}

// Default returns the built-in course.
func Default() (*Course, error) {
	return Parse(defaultCourse)
}

// Load reads a course from a YAML file. An empty path returns the
// built-in course.
func Load(path string) (*Course, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML course.
func Parse(b []byte) (*Course, error) {
	var c Course
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse course: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Course) validate() error {
	c.byID = make(map[string]int, len(c.Lessons))
	for i, l := range c.Lessons {
		if l.ID == "" {
			return fmt.Errorf("lesson %d: missing id", i)
		}
		if _, dup := c.byID[l.ID]; dup {
			return fmt.Errorf("lesson %q: duplicate id", l.ID)
		}
		if l.Difficulty < 0 || l.Difficulty > 1 {
			return fmt.Errorf("lesson %q: difficulty %v outside [0,1]", l.ID, l.Difficulty)
		}
		if l.XP < 0 {
			return fmt.Errorf("lesson %q: negative xp", l.ID)
		}
		c.byID[l.ID] = i
	}
	return nil
}

// Lesson returns the lesson with the given id.
func (c *Course) Lesson(id string) (Lesson, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Lesson{}, false
	}
	return c.Lessons[i], true
}

// Next returns the lesson after id in course order.
func (c *Course) Next(id string) (Lesson, bool) {
	i, ok := c.byID[id]
	if !ok || i+1 >= len(c.Lessons) {
		return Lesson{}, false
	}
	return c.Lessons[i+1], true
}

// FirstIncomplete returns the first lesson not in completed.
func (c *Course) FirstIncomplete(completed []string) (Lesson, bool) {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	for _, l := range c.Lessons {
		if !done[l.ID] {
			return l, true
		}
	}
	return Lesson{}, false
}

// Concepts returns every distinct concept in the course, sorted by id.
func (c *Course) Concepts() []Concept {
	seen := make(map[string]Concept)
	for _, l := range c.Lessons {
		for _, cc := range l.Concepts {
			if _, ok := seen[cc.ID]; !ok {
				seen[cc.ID] = cc
			}
		}
	}
	out := make([]Concept, 0, len(seen))
	for _, cc := range seen {
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConceptName returns the display name of a concept, or the id itself
// when the course does not know it.
func (c *Course) ConceptName(id string) string {
	for _, l := range c.Lessons {
		for _, cc := range l.Concepts {
			if cc.ID == id {
				return cc.Name
			}
		}
	}
	return id
}
