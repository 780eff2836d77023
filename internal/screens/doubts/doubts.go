package doubts

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/layout"
	"github.com/abhisek/aitutor/internal/ui/theme"
)

// DoubtsScreen lists the questions the learner asked, newest first.
type DoubtsScreen struct {
	store    *tutor.Store
	doubts   []tutor.DoubtEntry
	selected int
	expanded map[int]bool
}

var _ screen.Screen = (*DoubtsScreen)(nil)
var _ screen.KeyHintProvider = (*DoubtsScreen)(nil)

// New creates a DoubtsScreen.
func New(store *tutor.Store) *DoubtsScreen {
	return &DoubtsScreen{
		store:    store,
		expanded: make(map[int]bool),
	}
}

func (s *DoubtsScreen) Init() tea.Cmd {
	all := s.store.SearchDoubts("")
	s.doubts = make([]tutor.DoubtEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		s.doubts = append(s.doubts, all[i])
	}
	return nil
}

func (s *DoubtsScreen) Title() string {
	return "Doubts"
}

func (s *DoubtsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Show answer"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *DoubtsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch kmsg.String() {
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.doubts)-1 {
			s.selected++
		}
	case "enter":
		s.expanded[s.selected] = !s.expanded[s.selected]
	}
	return s, nil
}

func (s *DoubtsScreen) View(width, height int) string {
	if len(s.doubts) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No questions yet. Ask one while studying a lesson.")
	}

	var b strings.Builder
	b.WriteString("\n")

	answerStyle := lipgloss.NewStyle().Foreground(theme.TextDim).Width(max(width-8, 20)).PaddingLeft(6)
	for i, d := range s.doubts {
		prefix := "  "
		style := theme.Unselected
		if i == s.selected {
			prefix = "> "
			style = theme.Selected
		}

		where := d.LessonTitle
		if where == "" {
			where = "general"
		}
		line := fmt.Sprintf("%s%s  %s", prefix, d.Timestamp.Local().Format("Jan 02 15:04"), d.Question)
		b.WriteString(style.Render(line))
		b.WriteString("  " + theme.Hint.Render(where))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(answerStyle.Render(d.Answer))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
