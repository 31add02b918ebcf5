// Package driver runs a committed job: an ordered list of tasks followed by a single
// finalize step, reporting monotonic progress to a Listener and stopping at the first
// failure.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

// DefaultLoopWeight is the share of the progress bar given to the task loop. The rest is
// reserved for finalize.
const DefaultLoopWeight = 0.8

// Job is one commit of a tool. Items is a private copy of the staged order at commit time.
type Job struct {
	ID        string
	Tool      string
	Items     []models.StagedItem
	CreatedAt time.Time
}

// NewJob snapshots items for tool.
func NewJob(tool string, items []models.StagedItem) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Tool:      tool,
		Items:     append([]models.StagedItem(nil), items...),
		CreatedAt: time.Now(),
	}
}

// Task is one step of the loop. When Source is set the driver reads it fully and passes
// the bytes to Run; otherwise Run receives nil. Index is reported in ItemError and must be
// distinct across the tasks of one plan.
type Task struct {
	Label  string
	Index  int
	Name   string
	Source models.Source
	Run    func(ctx context.Context, data []byte) error
}

// Plan describes a job's work.
type Plan struct {
	StartLabel    string
	Tasks         []Task
	LoopWeight    float64
	FinalizeLabel string
	Finalize      func(ctx context.Context) ([]models.Output, error)
	DoneLabel     string
}

// Outcome is the result of a run. Err is nil on success.
type Outcome struct {
	JobID   string
	Outputs []models.Output
	Err     error
}

// FailedIndex returns the index of the task that failed, or -1.
func (o Outcome) FailedIndex() int {
	var itemErr *ItemError
	if errors.As(o.Err, &itemErr) {
		return itemErr.Index
	}
	return -1
}

// Driver executes plans.
type Driver struct {
	listener Listener
}

// New creates a driver reporting to listener. A nil listener discards events.
func New(listener Listener) *Driver {
	if listener == nil {
		listener = NopListener{}
	}
	return &Driver{listener: listener}
}

// Run executes plan for job. It never panics on task failure: the first error ends the
// run and is returned in the Outcome, wrapped as *ItemError or *SerializeError.
func (d *Driver) Run(ctx context.Context, job *Job, plan Plan) Outcome {
	logCtx := slog.With("jobId", job.ID, "tool", job.Tool)
	logCtx.Info("Starting job.", "tasks", len(plan.Tasks), "items", len(job.Items))

	outcome := d.run(ctx, logCtx, job, plan)
	if outcome.Err != nil {
		logCtx.Error("Job failed.", "error", outcome.Err)
	} else {
		logCtx.Info("Job finished.", "outputs", len(outcome.Outputs))
	}
	d.listener.OnDone(job.ID, outcome.Err)
	return outcome
}

func (d *Driver) run(ctx context.Context, logCtx *slog.Logger, job *Job, plan Plan) Outcome {
	progress := newTracker(job.ID, d.listener)
	outcome := Outcome{JobID: job.ID}

	weight := plan.LoopWeight
	if weight <= 0 || weight > 1 {
		weight = DefaultLoopWeight
	}
	if plan.StartLabel != "" {
		progress.emit(0, plan.StartLabel)
	}

	n := len(plan.Tasks)
	for i, task := range plan.Tasks {
		if err := ctx.Err(); err != nil {
			outcome.Err = &ItemError{Index: task.Index, Name: task.Name, Err: err}
			return outcome
		}
		progress.emit(progress.last, task.Label)

		var data []byte
		if task.Source != nil {
			b, err := readSource(ctx, task.Source)
			if err != nil {
				outcome.Err = &ItemError{Index: task.Index, Name: task.Name, Err: err}
				return outcome
			}
			data = b
		}
		if err := task.Run(ctx, data); err != nil {
			outcome.Err = &ItemError{Index: task.Index, Name: task.Name, Err: err}
			return outcome
		}
		logCtx.Debug("Task complete.", "index", task.Index, "name", task.Name)
		progress.emit(float64(i+1)/float64(n)*weight, task.Label)
	}

	if err := ctx.Err(); err != nil {
		outcome.Err = &SerializeError{Err: err}
		return outcome
	}
	if plan.Finalize != nil {
		progress.emit(weight+(1-weight)/2, plan.FinalizeLabel)
		outputs, err := plan.Finalize(ctx)
		if err != nil {
			outcome.Err = &SerializeError{Err: err}
			return outcome
		}
		outcome.Outputs = outputs
	}

	progress.emit(1, plan.DoneLabel)
	return outcome
}

// readSource reads a task's bytes. Cancellation is observed before and after the read.
func readSource(ctx context.Context, src models.Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return data, ctx.Err()
}

// ItemError is a failure while processing one element of the committed sequence. Index is
// 0-based.
type ItemError struct {
	Index int
	Name  string
	Err   error
}

func (e *ItemError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to process item %d: %v", e.Index+1, e.Err)
	}
	return fmt.Sprintf("failed to process %s (item %d): %v", e.Name, e.Index+1, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// SerializeError is a failure of the finalize step. No output is produced.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("failed to finalize output: %v", e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }
