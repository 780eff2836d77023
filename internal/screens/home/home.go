package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/screens/doubts"
	"github.com/abhisek/aitutor/internal/screens/progress"
	"github.com/abhisek/aitutor/internal/screens/study"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/components"
	"github.com/abhisek/aitutor/internal/ui/layout"
	"github.com/abhisek/aitutor/internal/ui/theme"
)

// HomeScreen lists the lessons and the progress and doubt pages.
type HomeScreen struct {
	deps screen.Deps
	menu components.Menu

	state tutor.State
	rec   adaptive.Recommendation
	next  curriculum.Lesson
	done  bool // every lesson completed
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ router.Refresher = (*HomeScreen)(nil)

// New creates a HomeScreen.
func New(deps screen.Deps) *HomeScreen {
	h := &HomeScreen{deps: deps}
	h.load()

	// Start on the lesson to continue.
	for i, l := range deps.Course.Lessons {
		if l.ID == h.next.ID {
			h.menu.Selected = i
			break
		}
	}
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

// Refresh reloads progress after a lesson or page closes.
func (h *HomeScreen) Refresh() tea.Cmd {
	selected := h.menu.Selected
	h.load()
	if selected < len(h.menu.Items) {
		h.menu.Selected = selected
	}
	return nil
}

func (h *HomeScreen) load() {
	h.state = h.deps.Store.Snapshot()
	h.rec = h.deps.Store.Recommendation()
	h.next, h.done = h.deps.Course.FirstIncomplete(h.state.CompletedLessons)
	h.done = !h.done
	h.menu = components.NewMenu(h.items())
}

func (h *HomeScreen) items() []components.MenuItem {
	deps := h.deps
	items := make([]components.MenuItem, 0, len(deps.Course.Lessons)+3)
	for i, l := range deps.Course.Lessons {
		lesson := l
		items = append(items, components.MenuItem{
			Label:  fmt.Sprintf("%d. %s", i+1, l.Title),
			Detail: h.lessonDetail(l),
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: study.New(deps, lesson)}
				}
			},
		})
	}

	items = append(items,
		components.MenuItem{Label: "Progress", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: progress.New(deps.Store, deps.Course)}
			}
		}},
		components.MenuItem{Label: "Doubts", Detail: fmt.Sprintf("%d saved", len(h.state.Doubts)), Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: doubts.New(deps.Store)}
			}
		}},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd {
			return tea.Quit
		}},
	)
	return items
}

func (h *HomeScreen) lessonDetail(l curriculum.Lesson) string {
	switch {
	case h.state.IsCompleted(l.ID):
		return "✓ done"
	case h.state.CurrentLessonID == l.ID:
		return fmt.Sprintf("in progress, step %d/%d", h.state.CurrentStep+1, len(l.Steps))
	default:
		return fmt.Sprintf("%d XP", l.XP)
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Render("  " + h.deps.Course.Title))
	b.WriteString("\n")

	greeting := "Welcome back"
	if name := h.state.Profile.Name; name != "" {
		greeting += ", " + name
	}
	b.WriteString(theme.Subtitle.Render("  " + greeting))
	b.WriteString("\n\n")

	bar := components.NewProgressBar(
		fmt.Sprintf("  %d/%d lessons", len(h.state.CompletedLessons), len(h.deps.Course.Lessons)),
		float64(len(h.state.CompletedLessons))/float64(max(len(h.deps.Course.Lessons), 1)),
		false, min(width-4, 50))
	b.WriteString(bar.View())
	b.WriteString("\n")

	if h.done {
		b.WriteString(theme.Hint.Render("  Course complete. Revisit any lesson to keep your mastery fresh."))
	} else {
		b.WriteString(theme.Hint.Render("  Up next: " + h.next.Title))
	}
	b.WriteString("\n")
	for _, hint := range h.rec.Modifications.Hints() {
		b.WriteString(theme.Nudge.Render("  • " + hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	menu := lipgloss.NewStyle().PaddingLeft(2).Render(h.menu.View())
	b.WriteString(menu)
	return b.String()
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "1-9", Description: "Jump to lesson"},
		{Key: "Enter", Description: "Open"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}
