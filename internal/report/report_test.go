package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	vcardclean "github.com/smileynet/vcardclean"
	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/dedupe"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/pipeline"
)

func sampleData() Data {
	res := pipeline.Result{
		Loaded:     5,
		Merged:     3,
		Records:    []contact.Record{{FullName: "Bob"}, {FullName: "Amy"}},
		Duplicates: []dedupe.Duplicate{{Phone: "021234567", Count: 2}},
	}
	events := []diag.Event{
		{Kind: diag.InvalidPhone, Phone: "442079460958", Region: "GB"},
		{Kind: diag.MergeOverflow, Phone: "0509999999", FullName: "Bob"},
		{Kind: diag.DuplicatePhone, Phone: "021234567", Count: 2},
	}
	started := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	return NewData("run-1", "contacts.vcf", "clean", started, res, events, []string{"contacts___CLEANED.vcf"})
}

func TestNewData(t *testing.T) {
	d := sampleData()

	if d.Written != 2 {
		t.Errorf("Written = %d, want 2", d.Written)
	}
	if len(d.InvalidPhones) != 1 || len(d.Overflows) != 1 {
		t.Errorf("invalid = %d, overflows = %d, want 1 and 1", len(d.InvalidPhones), len(d.Overflows))
	}
	if len(d.Duplicates) != 1 {
		t.Errorf("duplicates = %d, want 1", len(d.Duplicates))
	}
}

func TestNewData_NothingWritten(t *testing.T) {
	res := pipeline.Result{Loaded: 1, Records: []contact.Record{{FullName: "Bob"}}}
	d := NewData("run", "in.vcf", "clean", time.Now(), res, nil, nil)
	if d.Written != 0 {
		t.Errorf("Written = %d, want 0 when no outputs", d.Written)
	}
}

func TestRender_EmbeddedTemplate(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, vcardclean.Templates, sampleData()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"- Run: run-1",
		"- Input: contacts.vcf",
		"- Started: 2024-03-05 14:07:09",
		"| Loaded | 5 |",
		"| After merge | 3 |",
		"| Written | 2 |",
		"- 442079460958 (looks like GB)",
		"- 0509999999 for Bob",
		"- 021234567: found 2 times",
		"- contacts___CLEANED.vcf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRender_EmptySections(t *testing.T) {
	var buf bytes.Buffer
	d := NewData("run", "in.csv", "convert", time.Now(), pipeline.Result{Loaded: 1}, nil, nil)
	if err := Render(&buf, vcardclean.Templates, d); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if n := strings.Count(buf.String(), "None."); n != 3 {
		t.Errorf("None. sections = %d, want 3:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "None written.") {
		t.Errorf("report missing outputs placeholder:\n%s", buf.String())
	}
}

func TestRender_LocalOverride(t *testing.T) {
	// Given a local template overriding the embedded one
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TemplateName), []byte("custom {{.RunID}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	// When rendering through the overlay
	var buf bytes.Buffer
	err := Render(&buf, vcardclean.OverlayFS(dir, vcardclean.Templates), Data{RunID: "abc"})

	// Then the local template wins
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf.String() != "custom abc" {
		t.Errorf("output = %q, want %q", buf.String(), "custom abc")
	}
}

func TestRender_MissingTemplate(t *testing.T) {
	err := Render(&bytes.Buffer{}, fstest.MapFS{}, Data{})
	if err == nil || !strings.HasPrefix(err.Error(), "report: loading template") {
		t.Errorf("Render() error = %v, want loading template error", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts___REPORT.md")
	if err := WriteFile(path, vcardclean.Templates, sampleData()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Contact cleanup report") {
		t.Errorf("report = %q", data)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Error("NewRunID() returned the same id twice")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("NewRunID() = %q, not a UUID: %v", a, err)
	}
}
