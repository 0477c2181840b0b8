// Package pipeline sequences the cleaning stages over one input file and
// reports progress as it goes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/dedupe"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/format"
	"github.com/smileynet/vcardclean/internal/merge"
	"github.com/smileynet/vcardclean/internal/output"
)

// ErrNothingToProcess is returned when the input holds no records.
var ErrNothingToProcess = errors.New("pipeline: nothing to process")

// StageError indicates a run failure with stage context.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %q: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Input names the file to process.
type Input struct {
	Path string
}

// Result summarizes a run.
type Result struct {
	Loaded     int               // Records parsed from the input.
	Merged     int               // Records left after merging.
	Records    []contact.Record  // Final records, ready to write.
	Duplicates []dedupe.Duplicate // Phones still shared between records.
}

// Target is one output file to write.
type Target struct {
	Format string // Registered codec name.
	Path   string
}

// Runner sequences the stages of a clean or convert run.
type Runner struct {
	codecs         *format.Registry
	sink           diag.Sink
	statusCallback StatusCallback
	plan           []Stage
}

// Option configures a Runner.
type Option func(*Runner)

// New creates a Runner with the built-in codecs and the clean stage plan.
func New(opts ...Option) *Runner {
	r := &Runner{
		codecs:         DefaultCodecs(),
		sink:           diag.Discard,
		statusCallback: func(StatusUpdate) {},
		plan:           CleanStages(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithCodecs overrides the codec registry.
func WithCodecs(reg *format.Registry) Option {
	return func(r *Runner) { r.codecs = reg }
}

// WithSink sets where diagnostics go.
func WithSink(s diag.Sink) Option {
	return func(r *Runner) { r.sink = diag.OrDiscard(s) }
}

// WithStatusCallback sets the callback for progress updates.
func WithStatusCallback(cb StatusCallback) Option {
	return func(r *Runner) { r.statusCallback = cb }
}

// WithStages sets the plan used to number progress updates. Use
// ConvertStages for conversion runs.
func WithStages(plan []Stage) Option {
	return func(r *Runner) { r.plan = plan }
}

// Clean loads the input and runs merge, dedupe and the duplicate census.
// Duplicates found by the census are also reported to the sink.
func (r *Runner) Clean(ctx context.Context, in Input) (Result, error) {
	records, err := r.load(ctx, in)
	if err != nil {
		return Result{}, err
	}
	res := Result{Loaded: len(records)}

	err = r.stage(ctx, StageMerge, func() (int, error) {
		records = merge.Merge(records, r.sink)
		res.Merged = len(records)
		return len(records), nil
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage(ctx, StageDedupe, func() (int, error) {
		records = dedupe.Dedupe(records)
		return len(records), nil
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage(ctx, StageCensus, func() (int, error) {
		res.Duplicates = dedupe.Census(records)
		for _, d := range res.Duplicates {
			r.sink.Emit(diag.Event{Kind: diag.DuplicatePhone, Phone: d.Phone, Count: d.Count})
		}
		return len(res.Duplicates), nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Records = records
	return res, nil
}

// Convert loads the input without merging, for rewriting it in another
// format.
func (r *Runner) Convert(ctx context.Context, in Input) (Result, error) {
	records, err := r.load(ctx, in)
	if err != nil {
		return Result{}, err
	}
	return Result{Loaded: len(records), Merged: len(records), Records: records}, nil
}

// Write renders records to every target. Nothing is reported as written
// when targets is empty.
func (r *Runner) Write(ctx context.Context, records []contact.Record, targets ...Target) error {
	if len(targets) == 0 {
		r.notify(StatusUpdate{Stage: StageWrite, Status: StatusSkipped, Progress: progressOf(StageWrite, r.plan)})
		return nil
	}
	for _, t := range targets {
		err := r.stageDetail(ctx, StageWrite, t.Path, func() (int, error) {
			codec, err := r.codecs.New(t.Format)
			if err != nil {
				return 0, err
			}
			err = output.WriteFile(t.Path, func(w io.Writer) error {
				return codec.Encode(w, records)
			})
			if err != nil {
				return 0, err
			}
			return len(records), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) load(ctx context.Context, in Input) ([]contact.Record, error) {
	var records []contact.Record
	err := r.stageDetail(ctx, StageLoad, in.Path, func() (int, error) {
		codec, err := r.codecs.ForPath(in.Path)
		if err != nil {
			return 0, err
		}
		f, err := os.Open(in.Path)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		records, err = codec.Decode(f, r.sink)
		if err != nil {
			return 0, fmt.Errorf("parsing %s: %w", in.Path, err)
		}
		return len(records), nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingToProcess, in.Path)
	}
	return records, nil
}

func (r *Runner) stage(ctx context.Context, s Stage, fn func() (int, error)) error {
	return r.stageDetail(ctx, s, "", fn)
}

// stageDetail runs fn as stage s, checking for cancellation first and
// reporting running, then passed or failed.
func (r *Runner) stageDetail(ctx context.Context, s Stage, detail string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s, Err: err}
	}

	progress := progressOf(s, r.plan)
	r.notify(StatusUpdate{Stage: s, Status: StatusRunning, Progress: progress, Detail: detail})

	start := time.Now()
	n, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		r.notify(StatusUpdate{Stage: s, Status: StatusFailed, Progress: progress, Detail: detail, Duration: elapsed})
		return &StageError{Stage: s, Err: err}
	}
	r.notify(StatusUpdate{Stage: s, Status: StatusPassed, Progress: progress, Count: n, Detail: detail, Duration: elapsed})
	return nil
}

// notify fires the status callback.
func (r *Runner) notify(su StatusUpdate) {
	r.statusCallback(su)
}
