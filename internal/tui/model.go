package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StageStatus represents the current state of a stage in the TUI.
// Values mirror pipeline.Status so updates bridge with a plain conversion.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusRunning StageStatus = "running"
	StatusPassed  StageStatus = "passed"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// maxDiagnostics is how many diagnostics the TUI lists before summarizing.
const maxDiagnostics = 5

// StageState tracks the display state of a single stage.
type StageState struct {
	Name     string
	Status   StageStatus
	Count    int
	Detail   string
	Duration time.Duration
}

// Model is the Bubble Tea model for stage status display.
type Model struct {
	stages      []StageState
	spinner     spinner.Model
	diagnostics []string
	done        bool
	aborting    bool
	summary     string
	err         error
	cancelFunc  func()
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCancelFunc sets the function called on the first abort keypress.
// The model then waits for the run to report its error; a second keypress
// quits at once.
func WithCancelFunc(cancel func()) ModelOption {
	return func(m *Model) { m.cancelFunc = cancel }
}

// StatusUpdateMsg bridges pipeline status updates to the TUI.
type StatusUpdateMsg struct {
	Stage    string
	Status   StageStatus
	Progress string
	Count    int
	Detail   string
	Duration time.Duration
}

// DiagnosticMsg carries one non-fatal data problem.
type DiagnosticMsg struct {
	Text string
}

// PipelineDoneMsg signals that the run completed successfully.
type PipelineDoneMsg struct {
	Summary string
}

// PipelineErrorMsg signals that the run failed with an error.
type PipelineErrorMsg struct {
	Err error
}

// NewModel creates a Model initialized with the given stage names.
func NewModel(stageNames []string, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	stages := make([]StageState, len(stageNames))
	for i, name := range stageNames {
		stages[i] = StageState{Name: name, Status: StatusPending}
	}

	m := Model{stages: stages, spinner: s}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusUpdateMsg:
		for i := range m.stages {
			if m.stages[i].Name != msg.Stage {
				continue
			}
			st := &m.stages[i]
			st.Status = msg.Status
			if msg.Detail != "" {
				st.Detail = msg.Detail
			}
			if msg.Status != StatusRunning {
				st.Count = msg.Count
				st.Duration = msg.Duration
			}
			break
		}
		return m, nil

	case DiagnosticMsg:
		m.diagnostics = append(m.diagnostics, msg.Text)
		return m, nil

	case PipelineDoneMsg:
		m.done = true
		m.summary = msg.Summary
		return m, tea.Quit

	case PipelineErrorMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelFunc != nil && !m.aborting {
				m.aborting = true
				m.cancelFunc()
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the stage list, recent diagnostics and the outcome.
func (m Model) View() string {
	var b strings.Builder

	for _, st := range m.stages {
		fmt.Fprintf(&b, "  %s %s", statusIndicator(st.Status, m.spinner.View()), st.Name)
		if st.Detail != "" {
			b.WriteString(" " + dimStyle.Render(st.Detail))
		}
		if st.Status == StatusPassed {
			fmt.Fprintf(&b, " (%d)", st.Count)
		}
		if st.Duration > 0 {
			fmt.Fprintf(&b, " %.1fs", st.Duration.Seconds())
		}
		b.WriteString("\n")
	}

	if n := len(m.diagnostics); n > 0 {
		b.WriteString("\n")
		shown := m.diagnostics
		if n > maxDiagnostics {
			shown = shown[n-maxDiagnostics:]
		}
		for _, d := range shown {
			fmt.Fprintf(&b, "  %s %s\n", warnStyle.Render("!"), d)
		}
		if n > maxDiagnostics {
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf("… %d earlier warnings", n-maxDiagnostics)))
		}
	}

	switch {
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "\n  %s %s\n", failStyle.Render("Error:"), m.err)
	case m.done && m.summary != "":
		fmt.Fprintf(&b, "\n  %s\n", boldStyle.Render(m.summary))
	case m.aborting:
		fmt.Fprintf(&b, "\n  %s\n", warnStyle.Render("Aborting... press q again to quit"))
	}

	return b.String()
}
