package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
)

var cleanStages = []string{"load", "merge", "dedupe", "census", "write"}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNewModel_InitializesStages(t *testing.T) {
	m := NewModel(cleanStages)

	if got := len(m.stages); got != len(cleanStages) {
		t.Fatalf("stages count = %d, want %d", got, len(cleanStages))
	}
	for i, name := range cleanStages {
		if m.stages[i].Name != name {
			t.Errorf("stages[%d].Name = %q, want %q", i, m.stages[i].Name, name)
		}
		if m.stages[i].Status != StatusPending {
			t.Errorf("stages[%d].Status = %q, want %q", i, m.stages[i].Status, StatusPending)
		}
	}
}

func TestModel_StatusUpdate(t *testing.T) {
	m := NewModel(cleanStages)

	m = update(t, m, StatusUpdateMsg{Stage: "load", Status: StatusRunning, Detail: "contacts.vcf"})
	if m.stages[0].Status != StatusRunning || m.stages[0].Detail != "contacts.vcf" {
		t.Errorf("load = %+v, want running with detail", m.stages[0])
	}

	m = update(t, m, StatusUpdateMsg{Stage: "load", Status: StatusPassed, Count: 12, Duration: 2 * time.Second})
	if m.stages[0].Count != 12 || m.stages[0].Duration != 2*time.Second {
		t.Errorf("load = %+v, want count and duration", m.stages[0])
	}
	if m.stages[0].Detail != "contacts.vcf" {
		t.Errorf("detail = %q, want it kept", m.stages[0].Detail)
	}
}

func TestModel_UnknownStageIgnored(t *testing.T) {
	m := update(t, NewModel(cleanStages), StatusUpdateMsg{Stage: "bogus", Status: StatusPassed})
	for _, st := range m.stages {
		if st.Status != StatusPending {
			t.Errorf("stage %q status = %q, want pending", st.Name, st.Status)
		}
	}
}

func TestModel_DoneQuits(t *testing.T) {
	m := NewModel(cleanStages)
	next, cmd := m.Update(PipelineDoneMsg{Summary: "3 contacts"})
	final := next.(Model)

	if !final.done || final.summary != "3 contacts" {
		t.Errorf("model = done %v summary %q", final.done, final.summary)
	}
	if cmd == nil {
		t.Fatal("PipelineDoneMsg should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command should produce tea.QuitMsg")
	}
}

func TestModel_ErrorQuits(t *testing.T) {
	next, cmd := NewModel(cleanStages).Update(PipelineErrorMsg{Err: errors.New("boom")})
	final := next.(Model)

	if final.err == nil || !final.done {
		t.Error("model should record the error and be done")
	}
	if cmd == nil {
		t.Fatal("PipelineErrorMsg should return tea.Quit")
	}
	if !strings.Contains(final.View(), "boom") {
		t.Errorf("view should show the error, got:\n%s", final.View())
	}
}

func TestModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		t.Run(key.String(), func(t *testing.T) {
			next, cmd := NewModel(cleanStages).Update(key)
			if !next.(Model).done || cmd == nil {
				t.Errorf("%s should quit", key.String())
			}
		})
	}
}

// --- Abort ---

func TestModel_QuitKeys_WithCancel_AbortFirst(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		t.Run(key.String(), func(t *testing.T) {
			// Given: a model wired to cancel the run
			cancelled := 0
			m := NewModel(cleanStages, WithCancelFunc(func() { cancelled++ }))

			// When: the abort key is pressed once
			next, cmd := m.Update(key)
			updated := next.(Model)

			// Then: the run is cancelled but the display stays up for its result
			if cancelled != 1 {
				t.Errorf("cancel calls = %d, want 1", cancelled)
			}
			if !updated.aborting || updated.done {
				t.Errorf("aborting = %v, done = %v, want true and false", updated.aborting, updated.done)
			}
			if cmd != nil {
				t.Error("first press should not quit")
			}
			if !strings.Contains(updated.View(), "Aborting") {
				t.Errorf("view should show aborting, got:\n%s", updated.View())
			}

			// When: it is pressed again
			next, cmd = updated.Update(key)

			// Then: the display quits without cancelling twice
			if !next.(Model).done || cmd == nil {
				t.Error("second press should quit")
			}
			if cancelled != 1 {
				t.Errorf("cancel calls = %d, want 1", cancelled)
			}
		})
	}
}

func TestModel_Teatest_AbortWaitsForRunError(t *testing.T) {
	cancelled := make(chan struct{})
	m := NewModel(cleanStages, WithCancelFunc(func() { close(cancelled) }))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.Send(StatusUpdateMsg{Stage: "load", Status: StatusRunning})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("q should cancel the run")
	}
	tm.Send(PipelineErrorMsg{Err: errors.New("context canceled")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.err == nil || !final.done {
		t.Errorf("final model should hold the run error, got done=%v err=%v", final.done, final.err)
	}
}

func TestModel_View(t *testing.T) {
	m := NewModel(cleanStages)
	m = update(t, m, StatusUpdateMsg{Stage: "load", Status: StatusPassed, Count: 7})
	m = update(t, m, StatusUpdateMsg{Stage: "merge", Status: StatusFailed})
	m = update(t, m, StatusUpdateMsg{Stage: "write", Status: StatusSkipped})

	view := m.View()
	for _, want := range []string{"✓", "load", "(7)", "✗", "merge", "–", "○", "dedupe"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q, got:\n%s", want, view)
		}
	}
}

func TestModel_ViewLimitsDiagnostics(t *testing.T) {
	m := NewModel(cleanStages)
	for i := 0; i < maxDiagnostics+3; i++ {
		m = update(t, m, DiagnosticMsg{Text: fmt.Sprintf("warning-%d", i)})
	}

	view := m.View()
	if strings.Contains(view, "warning-0\n") {
		t.Errorf("oldest diagnostics should be summarized, got:\n%s", view)
	}
	if !strings.Contains(view, fmt.Sprintf("warning-%d", maxDiagnostics+2)) {
		t.Errorf("latest diagnostic missing, got:\n%s", view)
	}
	if !strings.Contains(view, "3 earlier warnings") {
		t.Errorf("view should count hidden diagnostics, got:\n%s", view)
	}
}

// TestModel_Teatest_FullRun verifies the model processes messages in sequence via teatest.
func TestModel_Teatest_FullRun(t *testing.T) {
	m := NewModel(cleanStages)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	for _, stage := range cleanStages {
		tm.Send(StatusUpdateMsg{Stage: stage, Status: StatusRunning})
		tm.Send(StatusUpdateMsg{Stage: stage, Status: StatusPassed, Count: 3})
	}
	tm.Send(DiagnosticMsg{Text: "invalid phone number: 12345"})
	tm.Send(PipelineDoneMsg{Summary: "3 contacts"})

	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	for i, name := range cleanStages {
		if final.stages[i].Status != StatusPassed {
			t.Errorf("stage %q status = %q, want %q", name, final.stages[i].Status, StatusPassed)
		}
	}
	if len(final.diagnostics) != 1 {
		t.Errorf("diagnostics = %d, want 1", len(final.diagnostics))
	}
	if !final.done {
		t.Error("final model should be done")
	}
}
