package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	vcardclean "github.com/smileynet/vcardclean"
	"github.com/smileynet/vcardclean/internal/config"
	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/output"
	"github.com/smileynet/vcardclean/internal/pipeline"
	"github.com/smileynet/vcardclean/internal/report"
	"github.com/smileynet/vcardclean/internal/tui"
)

// app carries what one command invocation needs. Terminal streams are
// injected so runs can be driven from tests.
type app struct {
	cfg     *config.Config
	in      io.Reader
	out     io.Writer
	plain   bool
	runID   string
	logger  *slog.Logger
	logFile *os.File
	now     func() time.Time
}

// newApp builds an app. Logs go to cfg.Log.File when set, to errOut in plain
// mode, and nowhere while the terminal UI owns the screen.
func newApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) (*app, error) {
	a := &app{
		cfg:   cfg,
		in:    in,
		out:   out,
		plain: cfg.Display.Plain || !tui.IsTTY(out),
		runID: report.NewRunID(),
		now:   time.Now,
	}

	logOut := io.Discard
	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
		logOut = f
	case a.plain:
		logOut = errOut
	}
	a.logger = diag.NewLogger(diag.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
		RunID:  a.runID,
	})
	return a, nil
}

// Close releases the log file, if any.
func (a *app) Close() error {
	if a.logFile == nil {
		return nil
	}
	return a.logFile.Close()
}

// clean runs the cleaning pipeline, asks which formats to write unless yes
// is set, and writes them next to the input.
func (a *app) clean(ctx context.Context, input string, yes bool) error {
	started := a.now()
	stages := pipeline.CleanStages()
	a.logger.Info("clean started", "input", input, "formats", strings.Join(a.cfg.Output.Formats, ","))

	var events diag.Collector
	res, err := a.process(ctx, stages, &events, summarizeClean, func(ctx context.Context, r *pipeline.Runner) (pipeline.Result, error) {
		return r.Clean(ctx, pipeline.Input{Path: input})
	})
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}

	placer := output.Placer{Dir: a.cfg.Output.Dir, Suffix: a.cfg.Output.Suffix, Now: a.now}
	var targets []pipeline.Target
	for _, f := range a.cfg.Output.Formats {
		if !yes {
			ok, err := tui.Confirm(ctx, a.in, a.out, fmt.Sprintf("Create %s file?", strings.ToUpper(f)))
			if err != nil {
				return fmt.Errorf("clean: %w", err)
			}
			if !ok {
				continue
			}
		}
		targets = append(targets, pipeline.Target{Format: f, Path: placer.CleanedPath(input, f)})
	}

	if err := a.write(ctx, stages, res.Records, targets); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return a.finish(input, "clean", started, res, events.Events(), targets)
}

// convert rewrites input in format to without merging. The output never
// overwrites an existing file.
func (a *app) convert(ctx context.Context, input, to string) error {
	started := a.now()
	stages := pipeline.ConvertStages()
	a.logger.Info("convert started", "input", input, "to", to)

	var events diag.Collector
	res, err := a.process(ctx, stages, &events, summarizeConvert, func(ctx context.Context, r *pipeline.Runner) (pipeline.Result, error) {
		return r.Convert(ctx, pipeline.Input{Path: input})
	})
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	placer := output.Placer{Dir: a.cfg.Output.Dir, Now: a.now}
	path, err := placer.UniquePath(input, to)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	targets := []pipeline.Target{{Format: to, Path: path}}
	if err := a.write(ctx, stages, res.Records, targets); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	return a.finish(input, "convert", started, res, events.Events(), targets)
}

// process runs everything up to writing under a display.
func (a *app) process(ctx context.Context, stages []pipeline.Stage, events *diag.Collector, describe func(pipeline.Result) string,
	run func(context.Context, *pipeline.Runner) (pipeline.Result, error)) (pipeline.Result, error) {

	var res pipeline.Result
	names := stageNames(stages[:len(stages)-1])
	err := a.withDisplay(ctx, names, func(ctx context.Context, bridge *tui.Bridge) (string, error) {
		r := pipeline.New(
			pipeline.WithStages(stages),
			pipeline.WithSink(a.sink(events, bridge)),
			pipeline.WithStatusCallback(bridgeStatusCallback(bridge)),
		)
		var err error
		res, err = run(ctx, r)
		if err != nil {
			return "", err
		}
		return describe(res), nil
	})
	return res, err
}

// write renders records to targets under a display of its own, since
// confirmation prompts run between processing and writing.
func (a *app) write(ctx context.Context, stages []pipeline.Stage, records []contact.Record, targets []pipeline.Target) error {
	return a.withDisplay(ctx, stageNames([]pipeline.Stage{pipeline.StageWrite}), func(ctx context.Context, bridge *tui.Bridge) (string, error) {
		r := pipeline.New(
			pipeline.WithStages(stages),
			pipeline.WithStatusCallback(bridgeStatusCallback(bridge)),
		)
		if err := r.Write(ctx, records, targets...); err != nil {
			return "", err
		}
		if len(targets) == 0 {
			return "nothing written", nil
		}
		paths := make([]string, len(targets))
		for i, t := range targets {
			paths[i] = t.Path
			a.logger.Info("wrote file", "path", t.Path, "format", t.Format, "records", len(records))
		}
		return "wrote " + strings.Join(paths, ", "), nil
	})
}

// withDisplay runs fn while a display renders its events, and waits for
// the display to release the terminal before returning. fn gets a context
// the display cancels when the user aborts.
func (a *app) withDisplay(ctx context.Context, stages []string, fn func(context.Context, *tui.Bridge) (string, error)) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge()
	display := tui.NewDisplay(tui.DisplayOptions{
		Writer:     a.out,
		ForcePlain: a.plain,
		Stages:     stages,
		CancelFunc: cancel,
	})

	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(context.Background(), bridge.Events())
	}()

	msg, err := fn(runCtx, bridge)
	if err != nil {
		bridge.Error(err)
	} else {
		bridge.Done(msg)
	}
	<-displayDone
	return err
}

// sink fans diagnostics out to the collector, the log, and in TUI mode the
// display. Plain mode already prints them through the log.
func (a *app) sink(events *diag.Collector, bridge *tui.Bridge) diag.Sink {
	sinks := []diag.Sink{events, diag.NewLogSink(a.logger)}
	if !a.plain {
		sinks = append(sinks, diag.SinkFunc(func(e diag.Event) {
			bridge.Diagnostic(e.String())
		}))
	}
	return diag.Multi(sinks...)
}

// finish logs the outcome and writes the run report when enabled.
func (a *app) finish(input, mode string, started time.Time, res pipeline.Result, events []diag.Event, targets []pipeline.Target) error {
	outputs := make([]string, len(targets))
	for i, t := range targets {
		outputs[i] = t.Path
	}
	a.logger.Info(mode+" finished",
		"loaded", res.Loaded, "merged", res.Merged, "records", len(res.Records),
		"duplicates", len(res.Duplicates), "outputs", len(outputs),
		"elapsed", a.now().Sub(started).Round(time.Millisecond).String())

	if !a.cfg.Report.Enabled {
		return nil
	}
	data := report.NewData(a.runID, input, mode, started, res, events, outputs)
	path := output.Placer{Dir: a.cfg.Output.Dir, Suffix: report.Suffix}.CleanedPath(input, "md")
	templates := vcardclean.OverlayFS(a.cfg.Report.TemplatesDir, vcardclean.Templates)
	if err := report.WriteFile(path, templates, data); err != nil {
		return fmt.Errorf("%s: %w", mode, err)
	}
	_, _ = fmt.Fprintf(a.out, "report: %s\n", path)
	return nil
}

// summarizeClean describes a clean result in one line.
func summarizeClean(res pipeline.Result) string {
	s := fmt.Sprintf("%d contacts loaded, %d after merging, %d after removing duplicates",
		res.Loaded, res.Merged, len(res.Records))
	if n := len(res.Duplicates); n > 0 {
		s += fmt.Sprintf(" (%d numbers still shared)", n)
	}
	return s
}

func summarizeConvert(res pipeline.Result) string {
	return fmt.Sprintf("%d contacts loaded", res.Loaded)
}

// bridgeStatusCallback returns a StatusCallback that converts pipeline
// StatusUpdates to tui.StatusUpdateMsg and sends them through the bridge.
func bridgeStatusCallback(bridge *tui.Bridge) pipeline.StatusCallback {
	return func(su pipeline.StatusUpdate) {
		bridge.Send(tui.StatusUpdateMsg{
			Stage:    string(su.Stage),
			Status:   tui.StageStatus(su.Status),
			Progress: su.Progress,
			Count:    su.Count,
			Detail:   su.Detail,
			Duration: su.Duration,
		})
	}
}

// stageNames converts stages for display initialization.
func stageNames(stages []pipeline.Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}
