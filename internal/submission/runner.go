// Package submission pushes a finished inspection to the property
// management system.
//
// The pipeline is an ordered list of stages. Each stage carries a failure
// policy: an AbortOnFailure stage stops the run, a ContinueOnFailure stage
// is logged and skipped. The runner records one Outcome per stage.
package submission

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/walkthrough/internal/metrics"
)

// Policy decides what a stage failure does to the rest of the run.
type Policy int

const (
	AbortOnFailure Policy = iota
	ContinueOnFailure
)

// Outcome statuses.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusContinued = "failed (continued)"
	StatusSkipped   = "skipped"
)

// Stage is one step of the pipeline.
type Stage struct {
	Name   string
	Label  string // shown to the user while the stage runs
	Policy Policy
	Run    func(ctx context.Context, s *state) error
}

// Outcome records how a stage ended.
type Outcome struct {
	Stage    string        `json:"stage"`
	Label    string        `json:"label"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`

	err error
}

// Err returns the stage error, if any.
func (o Outcome) Err() error {
	return o.err
}

// StatusFunc receives the label of each stage as it starts, and an empty
// label when the run ends.
type StatusFunc func(label string)

// runStages executes stages in order. It returns the outcomes and the
// error of the stage that aborted the run, if any. Stages after an abort
// are recorded as skipped.
func runStages(ctx context.Context, stages []Stage, s *state, status StatusFunc, logger *slog.Logger) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(stages))

	var abortErr error
	for _, stage := range stages {
		if abortErr != nil {
			outcomes = append(outcomes, Outcome{Stage: stage.Name, Label: stage.Label, Status: StatusSkipped})
			metrics.StageOutcomes.WithLabelValues(stage.Name, StatusSkipped).Inc()
			continue
		}

		if status != nil {
			status(stage.Label)
		}
		logger.Info("Submission stage started", "stage", stage.Name)

		start := time.Now()
		err := stage.Run(ctx, s)
		o := Outcome{Stage: stage.Name, Label: stage.Label, Duration: time.Since(start), Status: StatusOK}

		if err != nil {
			o.err = err
			o.Error = err.Error()
			if stage.Policy == AbortOnFailure {
				o.Status = StatusFailed
				abortErr = err
				logger.Error("Submission stage failed, aborting", "stage", stage.Name, "error", err)
			} else {
				o.Status = StatusContinued
				logger.Warn("Submission stage failed, continuing", "stage", stage.Name, "error", err)
			}
		}

		metrics.StageCompleted(stage.Name, o.Status, o.Duration)
		outcomes = append(outcomes, o)
	}

	if status != nil {
		status("")
	}
	return outcomes, abortErr
}
