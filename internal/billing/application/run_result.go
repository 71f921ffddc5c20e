package application

import (
	"fmt"
	"sync"
	"time"
)

// ItemKind names what a sweep item is.
type ItemKind string

const (
	ItemOwner   ItemKind = "owner"
	ItemUnit    ItemKind = "unit"
	ItemInvoice ItemKind = "invoice"
)

// ItemError records one item that failed inside a sweep.
type ItemError struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
	Err  error    `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// RunResult summarizes one sweep. It is safe for concurrent use while the
// sweep runs and read-only afterwards.
type RunResult struct {
	mu sync.Mutex

	Job        string      `json:"job"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Created    int         `json:"created"`
	Skipped    int         `json:"skipped"`
	Updated    int         `json:"updated"`
	Deleted    int         `json:"deleted"`
	Errors     []ItemError `json:"errors,omitempty"`
	// Fatal is set when the sweep could not run at all.
	Fatal error `json:"-"`
	// Interrupted is set when the sweep stopped early on shutdown.
	Interrupted bool `json:"interrupted,omitempty"`
}

func newRunResult(job string, startedAt time.Time) *RunResult {
	return &RunResult{Job: job, StartedAt: startedAt}
}

func (r *RunResult) addCreated(n int) {
	r.mu.Lock()
	r.Created += n
	r.mu.Unlock()
}

func (r *RunResult) addSkipped(n int) {
	r.mu.Lock()
	r.Skipped += n
	r.mu.Unlock()
}

func (r *RunResult) addUpdated(n int) {
	r.mu.Lock()
	r.Updated += n
	r.mu.Unlock()
}

func (r *RunResult) addDeleted(n int) {
	r.mu.Lock()
	r.Deleted += n
	r.mu.Unlock()
}

func (r *RunResult) addError(kind ItemKind, id string, err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, ItemError{Kind: kind, ID: id, Err: err})
	r.mu.Unlock()
}

func (r *RunResult) fail(err error) {
	r.mu.Lock()
	r.Fatal = err
	r.mu.Unlock()
}

func (r *RunResult) finish(at time.Time, interrupted bool) *RunResult {
	r.mu.Lock()
	r.FinishedAt = at
	r.Interrupted = r.Interrupted || interrupted
	r.mu.Unlock()
	return r
}

// Failed reports whether the sweep hit a fatal error or any item error.
func (r *RunResult) Failed() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Fatal != nil || len(r.Errors) > 0
}

// FatalMessage returns the fatal error text, or "".
func (r *RunResult) FatalMessage() string {
	if r == nil || r.Fatal == nil {
		return ""
	}
	return r.Fatal.Error()
}

// Duration returns how long the sweep took.
func (r *RunResult) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// String renders a one-line summary.
func (r *RunResult) String() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := fmt.Sprintf("%s: created=%d skipped=%d updated=%d deleted=%d errors=%d",
		r.Job, r.Created, r.Skipped, r.Updated, r.Deleted, len(r.Errors))
	if r.Fatal != nil {
		s += " fatal=" + r.Fatal.Error()
	}
	if r.Interrupted {
		s += " interrupted"
	}
	return s
}
