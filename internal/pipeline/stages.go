package pipeline

import (
	"fmt"
	"time"
)

// Stage names one step of a run.
type Stage string

const (
	StageLoad   Stage = "load"   // Parse the input file.
	StageMerge  Stage = "merge"  // Fold records sharing a full name.
	StageDedupe Stage = "dedupe" // Drop records with identical phones.
	StageCensus Stage = "census" // Report phones shared between records.
	StageWrite  Stage = "write"  // Render output files.
)

// CleanStages returns the stages of a clean run in execution order.
func CleanStages() []Stage {
	return []Stage{StageLoad, StageMerge, StageDedupe, StageCensus, StageWrite}
}

// ConvertStages returns the stages of a format conversion.
func ConvertStages() []Stage {
	return []Stage{StageLoad, StageWrite}
}

// Status represents the current state of a stage.
type Status string

const (
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StatusUpdate carries progress information for a single stage.
type StatusUpdate struct {
	Stage    Stage
	Status   Status
	Progress string        // Human-readable position, e.g. "2/5".
	Count    int           // Records produced by the stage, or files written. Set once finished.
	Detail   string        // Extra context such as the path being written.
	Duration time.Duration // Set once finished.
}

// StatusCallback receives stage progress updates.
type StatusCallback func(StatusUpdate)

func progressOf(s Stage, plan []Stage) string {
	for i, p := range plan {
		if p == s {
			return fmt.Sprintf("%d/%d", i+1, len(plan))
		}
	}
	return ""
}
