package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel asks a single yes/no question. Anything but "y" answers no.
type ConfirmModel struct {
	question string
	answer   bool
	done     bool
}

// NewConfirmModel creates a ConfirmModel for question.
func NewConfirmModel(question string) ConfirmModel {
	return ConfirmModel{question: question}
}

// Answer reports the choice once the model has finished.
func (m ConfirmModel) Answer() bool {
	return m.answer
}

// Init does nothing; the model waits for a key.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = true
	case "n", "N", "enter", "esc", "q", "ctrl+c":
		m.answer = false
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

// View renders the question and, once answered, the choice.
func (m ConfirmModel) View() string {
	prompt := fmt.Sprintf("%s %s ", boldStyle.Render(m.question), dimStyle.Render("[y/N]"))
	if !m.done {
		return prompt
	}
	if m.answer {
		return prompt + passStyle.Render("yes") + "\n"
	}
	return prompt + dimStyle.Render("no") + "\n"
}

// Confirm asks question and reports whether the user answered yes. On a
// terminal it runs a ConfirmModel; otherwise it prints the question to out
// and reads one line from in. End of input answers no.
func Confirm(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	if IsTTY(in) && IsTTY(out) {
		return confirmTUI(ctx, in, out, question)
	}
	return confirmLine(in, out, question)
}

func confirmTUI(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	p := tea.NewProgram(NewConfirmModel(question),
		tea.WithInput(in), tea.WithOutput(out), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("tui: confirm: %w", err)
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Answer(), nil
}

func confirmLine(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", question); err != nil {
		return false, fmt.Errorf("tui: confirm: %w", err)
	}
	line, err := readLine(in)
	if err != nil {
		return false, fmt.Errorf("tui: confirm: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine reads the next line without its newline one byte at a time,
// leaving the rest of in unread for later questions.
func readLine(in io.Reader) (string, error) {
	var (
		sb  strings.Builder
		buf [1]byte
	)
	for {
		n, err := in.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}
