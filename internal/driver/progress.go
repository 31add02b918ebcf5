package driver

import (
	"sync"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

// Listener receives job events. Implementations must not block for long; they are called
// from the goroutine running the job.
type Listener interface {
	OnProgress(jobID string, p models.Progress)
	OnDone(jobID string, err error)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) OnProgress(string, models.Progress) {}
func (NopListener) OnDone(string, error)               {}

// Recorder is a Listener that keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []models.Progress
	done   []error
}

func (r *Recorder) OnProgress(_ string, p models.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *Recorder) OnDone(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, err)
}

// Events returns the progress events received so far.
func (r *Recorder) Events() []models.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Progress(nil), r.events...)
}

// Done returns the error of every finished job, nil for successes.
func (r *Recorder) Done() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.done...)
}

// Last returns the most recent progress event.
func (r *Recorder) Last() (models.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return models.Progress{}, false
	}
	return r.events[len(r.events)-1], true
}

// tracker clamps emitted fractions so a job's progress never moves backwards.
type tracker struct {
	jobID    string
	listener Listener
	last     float64
}

func newTracker(jobID string, listener Listener) *tracker {
	return &tracker{jobID: jobID, listener: listener}
}

func (t *tracker) emit(fraction float64, phase string) {
	if fraction < t.last {
		fraction = t.last
	}
	if fraction > 1 {
		fraction = 1
	}
	t.last = fraction
	t.listener.OnProgress(t.jobID, models.Progress{Fraction: fraction, Phase: phase})
}
