package progress

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/components"
	"github.com/abhisek/aitutor/internal/ui/layout"
	"github.com/abhisek/aitutor/internal/ui/theme"
)

type rowKind int

const (
	rowLessonHeader rowKind = iota
	rowConcept
)

type row struct {
	kind    rowKind
	lesson  curriculum.Lesson
	concept curriculum.Concept
}

// ProgressScreen shows level, pacing and per-concept mastery grouped by
// lesson.
type ProgressScreen struct {
	store  *tutor.Store
	course *curriculum.Course

	rows         []row
	cursor       int
	scrollOffset int

	state   tutor.State
	levels  map[string]float64
	rec     adaptive.Recommendation
	summary mastery.Summary
}

var _ screen.Screen = (*ProgressScreen)(nil)
var _ screen.KeyHintProvider = (*ProgressScreen)(nil)

// New creates a ProgressScreen.
func New(store *tutor.Store, course *curriculum.Course) *ProgressScreen {
	var rows []row
	for _, l := range course.Lessons {
		rows = append(rows, row{kind: rowLessonHeader, lesson: l})
		for _, c := range l.Concepts {
			rows = append(rows, row{kind: rowConcept, lesson: l, concept: c})
		}
	}

	s := &ProgressScreen{store: store, course: course, rows: rows}
	for i, r := range s.rows {
		if r.kind == rowConcept {
			s.cursor = i
			break
		}
	}
	return s
}

func (s *ProgressScreen) Init() tea.Cmd {
	s.state = s.store.Snapshot()
	s.levels = s.store.EffectiveMastery()
	s.rec = s.store.Recommendation()
	s.summary = mastery.Summarize(s.state.ConceptMastery, s.store.Now())
	return nil
}

func (s *ProgressScreen) Title() string {
	return "Progress"
}

func (s *ProgressScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Tab", Description: "Next lesson"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProgressScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch kmsg.String() {
	case "up", "k":
		s.moveCursor(-1)
	case "down", "j":
		s.moveCursor(1)
	case "tab":
		s.nextLesson()
	case "q", "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

func (s *ProgressScreen) View(width, height int) string {
	top := s.renderOverview(width)
	listHeight := height - lipgloss.Height(top)
	if listHeight < 1 {
		return top
	}

	s.adjustScroll(listHeight)
	var lines []string
	for i := s.scrollOffset; i < len(s.rows) && len(lines) < listHeight; i++ {
		r := s.rows[i]
		switch r.kind {
		case rowLessonHeader:
			lines = append(lines, s.renderLessonHeader(r.lesson, width))
		case rowConcept:
			lines = append(lines, s.renderConceptRow(r, i == s.cursor, width))
		}
	}
	return top + "\n" + strings.Join(lines, "\n")
}

func (s *ProgressScreen) renderOverview(width int) string {
	var b strings.Builder
	b.WriteString("\n")

	bar := components.NewProgressBar(
		fmt.Sprintf("  Level %d", s.state.Level()),
		s.state.LevelProgress(), true, min(width-4, 60))
	b.WriteString(bar.View())
	b.WriteString("\n")

	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  %d XP  ·  %d/%d lessons  ·  pacing: %s",
		s.state.XP, len(s.state.CompletedLessons), len(s.course.Lessons), s.rec.Action)))
	b.WriteString("\n")

	if s.summary.Count > 0 {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("  mastery mean %.0f, spread %.0f, range %.0f–%.0f",
			s.summary.Mean, s.summary.StdDev, s.summary.Min, s.summary.Max)))
		b.WriteString("\n")
	}
	for _, h := range s.rec.Modifications.Hints() {
		b.WriteString(theme.Nudge.Render("  • " + h))
		b.WriteString("\n")
	}
	return b.String()
}

// moveCursor moves the cursor by delta, skipping lesson headers.
func (s *ProgressScreen) moveCursor(delta int) {
	next := s.cursor + delta
	for next >= 0 && next < len(s.rows) {
		if s.rows[next].kind == rowConcept {
			s.cursor = next
			return
		}
		next += delta
	}
}

// nextLesson jumps to the first concept of the next lesson.
func (s *ProgressScreen) nextLesson() {
	if len(s.rows) == 0 {
		return
	}
	current := s.rows[s.cursor].lesson.ID
	for i := s.cursor + 1; i < len(s.rows); i++ {
		if s.rows[i].kind == rowConcept && s.rows[i].lesson.ID != current {
			s.cursor = i
			return
		}
	}
}

// adjustScroll keeps the cursor and its lesson header visible.
func (s *ProgressScreen) adjustScroll(height int) {
	headerRow := s.cursor
	for headerRow > 0 && s.rows[headerRow-1].kind == rowConcept && s.rows[headerRow-1].lesson.ID == s.rows[s.cursor].lesson.ID {
		headerRow--
	}
	if headerRow > 0 && s.rows[headerRow-1].kind == rowLessonHeader {
		headerRow--
	}

	if headerRow < s.scrollOffset {
		s.scrollOffset = headerRow
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}

func (s *ProgressScreen) renderLessonHeader(l curriculum.Lesson, width int) string {
	mark := ""
	if s.state.IsCompleted(l.ID) {
		mark = "  ✓"
	}
	return lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Width(width).
		PaddingLeft(2).
		Render(strings.ToUpper(l.Title) + mark)
}

func (s *ProgressScreen) renderConceptRow(r row, selected bool, width int) string {
	level, practiced := s.levels[r.concept.ID]
	label := mastery.LabelFor(level)

	cursor := "  "
	nameStyle := theme.Unselected
	if selected {
		cursor = "▸ "
		nameStyle = theme.Selected
	}

	nameWidth := 24
	name := r.concept.Name
	if len(name) > nameWidth {
		name = name[:nameWidth-1] + "…"
	}

	status := lipgloss.NewStyle().Foreground(theme.LabelColor(label)).Render(fmt.Sprintf("%-12s", label))
	if !practiced {
		status = theme.Hint.Render(fmt.Sprintf("%-12s", "not started"))
	}

	bar := components.MasteryBar(level, max(min(width-nameWidth-24, 40), 10))
	return fmt.Sprintf("  %s%s %s %s", cursor, nameStyle.Render(fmt.Sprintf("%-*s", nameWidth, name)), status, bar.View())
}
