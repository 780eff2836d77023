package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(text string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: rune(text[0]), Text: text}
}

func testMenu() Menu {
	return NewMenu([]MenuItem{
		{Label: "locked", Disabled: true},
		{Label: "1. What is ML"},
		{Label: "2. Linear Regression", Disabled: true},
		{Label: "3. Gradient Descent"},
	})
}

func TestNewMenu_SkipsDisabled(t *testing.T) {
	if m := testMenu(); m.Selected != 1 {
		t.Errorf("selected = %d, want 1", m.Selected)
	}
}

func TestMenu_Navigation(t *testing.T) {
	m := testMenu()

	m, _ = m.Update(key("j"))
	if m.Selected != 3 {
		t.Fatalf("after down selected = %d, want 3", m.Selected)
	}
	m, _ = m.Update(key("j"))
	if m.Selected != 3 {
		t.Errorf("down at the end moved to %d", m.Selected)
	}
	m, _ = m.Update(key("k"))
	if m.Selected != 1 {
		t.Errorf("after up selected = %d, want 1", m.Selected)
	}
	m, _ = m.Update(key("k"))
	if m.Selected != 1 {
		t.Errorf("up onto a disabled item moved to %d", m.Selected)
	}
}

func TestMenu_DigitJump(t *testing.T) {
	m := testMenu()
	m, _ = m.Update(key("4"))
	if m.Selected != 3 {
		t.Errorf("selected = %d, want 3", m.Selected)
	}
	m, _ = m.Update(key("3"))
	if m.Selected != 3 {
		t.Errorf("jump to a disabled item moved to %d", m.Selected)
	}
}

func TestMenu_EnterRunsAction(t *testing.T) {
	ran := false
	m := NewMenu([]MenuItem{{Label: "Go", Action: func() tea.Cmd { ran = true; return nil }}})
	m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !ran {
		t.Error("action not run")
	}
}
