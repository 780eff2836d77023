package app

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/tutor"
)

func testDeps(t *testing.T) screen.Deps {
	t.Helper()
	course, err := curriculum.Default()
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	return screen.Deps{
		Store:  tutor.Open(context.Background(), tutor.Options{}),
		Course: course,
	}
}

func TestNewAppModel_UnknownLesson(t *testing.T) {
	if _, err := newAppModel(testDeps(t), "quantum-computing"); err == nil {
		t.Error("expected an error for an unknown lesson")
	}
}

func TestNewAppModel_StartLesson(t *testing.T) {
	m, err := newAppModel(testDeps(t), "linear-regression")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected a start command")
	}
	if _, ok := cmd().(router.PushScreenMsg); !ok {
		t.Error("expected PushScreenMsg")
	}
}

func TestAppModel_HeaderShowsLevel(t *testing.T) {
	deps := testDeps(t)
	deps.Store.CompleteLesson(context.Background(), "what-is-ml", 1200)

	m, err := newAppModel(deps, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	content := model.(AppModel).render()
	for _, want := range []string{"Lv 3", "1200 XP", "Home"} {
		if !strings.Contains(content, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAppModel_TooSmall(t *testing.T) {
	m, _ := newAppModel(testDeps(t), "")
	model, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(model.(AppModel).render(), "too small") {
		t.Error("expected the min size message")
	}
}
