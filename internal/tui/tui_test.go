package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/handiism/ncmdump/internal/config"
	"github.com/handiism/ncmdump/internal/dump"
)

func TestSplitTargets(t *testing.T) {
	got := splitTargets(" a.ncm, b.ncm\tdir/*.qmc0 ,,")
	want := []string{"a.ncm", "b.ncm", "dir/*.qmc0"}
	if len(got) != len(want) {
		t.Fatalf("splitTargets() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitTargets()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestModel_Toggles(t *testing.T) {
	m := NewModel(config.DefaultSettings())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(Model)
	if !m.settings.Recursive {
		t.Error("ctrl+r should enable recursive")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	m = updated.(Model)
	if !m.settings.Overwrite {
		t.Error("ctrl+o should enable overwrite")
	}
	if m.textInput.Value() != "" {
		t.Errorf("toggles leaked into the input: %q", m.textInput.Value())
	}
}

func TestModel_EnterWithoutTargets(t *testing.T) {
	m := NewModel(nil)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if updated.(Model).state != StateInput {
		t.Error("enter with empty input should stay in the input state")
	}
}

func TestModel_ProgressFiltersVerbose(t *testing.T) {
	m := NewModel(config.DefaultSettings())
	m.state = StateDumping

	updated, _ := m.Update(ProgressMsg{Event: dump.ProgressEvent{Message: "detail", Level: dump.LevelVerbose}})
	m = updated.(Model)
	if len(m.logs) != 0 {
		t.Errorf("logs = %v, verbose events should be hidden", m.logs)
	}

	for i := 0; i < maxLogs+5; i++ {
		updated, _ = m.Update(ProgressMsg{Event: dump.ProgressEvent{Message: "line", Level: dump.LevelInfo}})
		m = updated.(Model)
	}
	if len(m.logs) != maxLogs {
		t.Errorf("len(logs) = %d, want %d", len(m.logs), maxLogs)
	}
}

func TestModel_DumpDone(t *testing.T) {
	m := NewModel(nil)
	m.state = StateDumping

	updated, _ := m.Update(DumpDoneMsg{Report: &dump.Report{Written: []string{"a.flac"}}})
	m = updated.(Model)
	if m.state != StateComplete {
		t.Errorf("state = %v, want complete", m.state)
	}

	m.state = StateDumping
	updated, _ = m.Update(DumpDoneMsg{Err: errors.New("queue failure")})
	m = updated.(Model)
	if m.state != StateError || m.err == nil {
		t.Errorf("state = %v, err = %v, want error state", m.state, m.err)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(Model)
	if m.state != StateInput || m.err != nil || m.report != nil {
		t.Error("r should reset to the input state")
	}
}
