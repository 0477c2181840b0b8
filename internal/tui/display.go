package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// DisplayEvent is an event sent to a Display via the update channel.
// Implemented by StatusUpdateMsg, DiagnosticMsg, PipelineDoneMsg, and
// PipelineErrorMsg.
type DisplayEvent interface {
	isDisplayEvent()
}

func (StatusUpdateMsg) isDisplayEvent()  {}
func (DiagnosticMsg) isDisplayEvent()    {}
func (PipelineDoneMsg) isDisplayEvent()  {}
func (PipelineErrorMsg) isDisplayEvent() {}

// Verify at compile time that message types implement DisplayEvent.
var (
	_ DisplayEvent = StatusUpdateMsg{}
	_ DisplayEvent = DiagnosticMsg{}
	_ DisplayEvent = PipelineDoneMsg{}
	_ DisplayEvent = PipelineErrorMsg{}
)

// Display renders pipeline status updates.
type Display interface {
	Run(ctx context.Context, events <-chan DisplayEvent) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Writer     io.Writer // Output destination (default: os.Stdout).
	ForcePlain bool      // Force plain text even if TTY.
	Stages     []string  // Stage names for TUI initialization.

	CancelFunc context.CancelFunc // Called by TUI on abort keypress (ignored by PlainDisplay).
}

// NewDisplay returns a TUI display when stdout is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	if opts.ForcePlain || !IsTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer}
	}

	return &TUIDisplay{stages: opts.Stages, w: opts.Writer, cancelFunc: opts.CancelFunc}
}

// IsTTY reports whether f is connected to a terminal. Values that are not
// an *os.File never are.
func IsTTY(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Bridge manages the channel between a status producer and a Display consumer.
type Bridge struct {
	ch chan DisplayEvent
}

// NewBridge creates a Bridge with a buffered event channel.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan DisplayEvent, 16)}
}

// Events returns the read-only channel for Display.Run() to consume.
func (b *Bridge) Events() <-chan DisplayEvent {
	return b.ch
}

// Send delivers a StatusUpdateMsg to the display.
// It blocks if the channel buffer (16) is full.
func (b *Bridge) Send(msg StatusUpdateMsg) {
	b.ch <- msg
}

// Diagnostic delivers a warning line to the display.
func (b *Bridge) Diagnostic(text string) {
	b.ch <- DiagnosticMsg{Text: text}
}

// Done signals successful completion and closes the channel.
func (b *Bridge) Done(summary string) {
	b.ch <- PipelineDoneMsg{Summary: summary}
	close(b.ch)
}

// Error signals failure and closes the channel.
func (b *Bridge) Error(err error) {
	b.ch <- PipelineErrorMsg{Err: err}
	close(b.ch)
}

// PlainDisplay renders status updates as timestamped text lines.
type PlainDisplay struct {
	w io.Writer
}

// Run loops over events, printing each one as a text line.
// Returns the run error if the run failed, or context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch msg := ev.(type) {
			case StatusUpdateMsg:
				d.renderUpdate(msg)
			case DiagnosticMsg:
				_, _ = fmt.Fprintf(d.w, "[%s] warning: %s\n", timestamp(), msg.Text)
			case PipelineDoneMsg:
				if msg.Summary != "" {
					_, _ = fmt.Fprintln(d.w, msg.Summary)
				}
				return nil
			case PipelineErrorMsg:
				return msg.Err
			}
		}
	}
}

func (d *PlainDisplay) renderUpdate(su StatusUpdateMsg) {
	line := fmt.Sprintf("[%s] [%s] %s %s", timestamp(), su.Progress, su.Stage, su.Status)
	if su.Detail != "" {
		line += " " + su.Detail
	}
	if su.Status == StatusPassed {
		line += fmt.Sprintf(" (%d, %.1fs)", su.Count, su.Duration.Seconds())
	}
	_, _ = fmt.Fprintln(d.w, line)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// TUIDisplay renders status updates using a Bubble Tea terminal UI.
// Falls back to PlainDisplay if the TUI program fails to start.
type TUIDisplay struct {
	stages     []string
	w          io.Writer
	cancelFunc context.CancelFunc
}

// Run starts the Bubble Tea program and feeds events from the channel.
// If the TUI fails to initialize, it falls back to plain text output.
func (d *TUIDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	p := tea.NewProgram(d.model(), tea.WithOutput(d.w), tea.WithContext(ctx))

	// Forward events through an intermediate channel so we can stop
	// the goroutine cleanly on TUI failure before falling back.
	fwd := make(chan DisplayEvent, 16)
	stop := make(chan struct{})

	go func() {
		defer close(fwd)
		for ev := range events {
			select {
			case fwd <- ev:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for ev := range fwd {
			p.Send(ev)
		}
	}()

	final, err := p.Run()
	if err != nil {
		close(stop)
		plain := &PlainDisplay{w: d.w}
		return plain.Run(ctx, events)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

// model builds the stage model, wiring the abort key to cancelFunc.
func (d *TUIDisplay) model() Model {
	var opts []ModelOption
	if d.cancelFunc != nil {
		opts = append(opts, WithCancelFunc(d.cancelFunc))
	}
	return NewModel(d.stages, opts...)
}
