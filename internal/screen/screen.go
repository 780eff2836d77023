package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/logger"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/layout"
	"github.com/abhisek/aitutor/internal/voice"
)

// Screen is one page of the study app.
type Screen interface {
	// Init returns an initial command when the screen is first shown.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen and command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content, without header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Closer is implemented by screens that own background work. Close is
// called once when the screen leaves the stack.
type Closer interface {
	Close()
}

// Deps are the services screens share.
type Deps struct {
	Store    *tutor.Store
	Course   *curriculum.Course
	Tutor    *chat.Tutor
	Narrator *voice.Narrator
	Logger   *logger.Logger

	// Watch tunes stuck detection on the study screen.
	Watch tutor.WatchConfig
}
