// Package report renders a markdown summary of a cleaning run.
package report

import (
	"fmt"
	"io"
	"io/fs"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/smileynet/vcardclean/internal/dedupe"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/output"
	"github.com/smileynet/vcardclean/internal/pipeline"
)

// TemplateName is the report template looked up in the templates filesystem.
const TemplateName = "report.md.tmpl"

// Suffix is appended to the input's stem to name the report file.
const Suffix = "___REPORT"

// Data is the template input.
type Data struct {
	RunID         string
	Input         string
	Mode          string // "clean" or "convert".
	Started       time.Time
	Loaded        int
	Merged        int
	Written       int
	InvalidPhones []diag.Event
	Overflows     []diag.Event
	Duplicates    []dedupe.Duplicate
	Outputs       []string
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// NewData collects a run's result and diagnostics into report data.
func NewData(runID, input, mode string, started time.Time, res pipeline.Result, events []diag.Event, outputs []string) Data {
	d := Data{
		RunID:      runID,
		Input:      input,
		Mode:       mode,
		Started:    started,
		Loaded:     res.Loaded,
		Merged:     res.Merged,
		Duplicates: res.Duplicates,
		Outputs:    outputs,
	}
	if len(outputs) > 0 {
		d.Written = len(res.Records)
	}
	for _, e := range events {
		switch e.Kind {
		case diag.InvalidPhone:
			d.InvalidPhones = append(d.InvalidPhones, e)
		case diag.MergeOverflow:
			d.Overflows = append(d.Overflows, e)
		}
	}
	return d
}

// Render executes the report template from templates into w.
func Render(w io.Writer, templates fs.FS, d Data) error {
	tmpl, err := template.ParseFS(templates, TemplateName)
	if err != nil {
		return fmt.Errorf("report: loading template: %w", err)
	}
	if err := tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("report: rendering: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path string, templates fs.FS, d Data) error {
	return output.WriteFile(path, func(w io.Writer) error {
		return Render(w, templates, d)
	})
}
