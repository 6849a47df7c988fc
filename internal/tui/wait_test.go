package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestWaitModelTracksPolls(t *testing.T) {
	m := NewWaitModel("Live mount", "db01:ORCL", 20*time.Minute, nil)

	next, _ := m.Update(PollMsg{JobID: "MOUNT_1", Status: "RUNNING", Progress: 40, Count: 3})
	m = next.(WaitModel)
	if m.status != "RUNNING" || m.polls != 3 || m.jobID != "MOUNT_1" {
		t.Fatalf("model after poll = %+v", m)
	}

	view := m.View()
	for _, want := range []string{"Live mount", "db01:ORCL", "MOUNT_1", "RUNNING", "40%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWaitModelDoneQuits(t *testing.T) {
	m := NewWaitModel("Clone", "", time.Minute, nil)

	next, cmd := m.Update(DoneMsg{Status: "FAILED", Err: errors.New("job failed")})
	m = next.(WaitModel)
	if !m.done || cmd == nil {
		t.Fatal("done message did not finish the view")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done message should quit the program")
	}
	if !strings.Contains(m.View(), "FAILED") {
		t.Errorf("view = %s", m.View())
	}
}

func TestWaitModelCancelKey(t *testing.T) {
	canceled := 0
	m := NewWaitModel("Snapshot", "", time.Minute, func() { canceled++ })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(WaitModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(WaitModel)

	if canceled != 1 {
		t.Errorf("cancel called %d times, want 1", canceled)
	}
	if !strings.Contains(m.View(), "keeps running") {
		t.Errorf("view = %s", m.View())
	}
}
