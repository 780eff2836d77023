// Package app runs the terminal study app.
package app

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/screens/home"
	"github.com/abhisek/aitutor/internal/screens/study"
	"github.com/abhisek/aitutor/internal/ui/layout"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	deps   screen.Deps
	router *router.Router
	width  int
	height int

	start tea.Cmd
}

// newAppModel creates an AppModel on the home screen. A non-empty
// lessonID opens that lesson on top of it.
func newAppModel(deps screen.Deps, lessonID string) (AppModel, error) {
	m := AppModel{
		deps:   deps,
		router: router.New(home.New(deps)),
	}
	if lessonID != "" {
		lesson, ok := deps.Course.Lesson(lessonID)
		if !ok {
			return AppModel{}, fmt.Errorf("unknown lesson %q", lessonID)
		}
		scr := study.New(deps, lesson)
		m.start = func() tea.Msg { return router.PushScreenMsg{Screen: scr} }
	}
	return m, nil
}

func (m AppModel) Init() tea.Cmd {
	return m.start
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the frame for the current terminal size.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	st := m.deps.Store.Snapshot()
	header := layout.RenderHeader(title, st.Level(), st.LevelProgress(), st.XP, m.width)

	var footerHints []layout.KeyHint
	if kp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = kp.KeyHints()
	} else {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the study app and blocks until the learner quits or ctx is
// cancelled. Background work of open screens is stopped before it returns.
func Run(ctx context.Context, deps screen.Deps, lessonID string) error {
	m, err := newAppModel(deps, lessonID)
	if err != nil {
		return err
	}
	defer m.router.Close()

	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run study app: %w", err)
	}
	return nil
}
