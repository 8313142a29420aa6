// Package progress stores the shared record that polling clients read while a
// translation job runs.
package progress

import (
	"context"
	"errors"
	"time"
)

// ErrSuperseded is returned when a write names a job that no longer owns the
// record, typically because another replica started a newer job.
var ErrSuperseded = errors.New("progress: job superseded")

// Progress is the polled job record. The first four fields keep the wire
// names existing clients depend on.
type Progress struct {
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Filename   string     `json:"filename"`
	Finished   bool       `json:"finished"`
	JobID      string     `json:"job_id,omitempty"`
	Target     string     `json:"target,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (p Progress) Done() bool {
	return p.Finished || p.Error != ""
}

// Store persists the single progress record. Reset hands the record to
// p.JobID; every other write is applied only while jobID still owns it and
// returns ErrSuperseded otherwise.
type Store interface {
	// Reset replaces the record at the start of a job.
	Reset(ctx context.Context, p Progress) error
	// SetTotal records the number of strings the job will translate.
	SetTotal(ctx context.Context, jobID string, total int) error
	// Add advances the completed counter.
	Add(ctx context.Context, jobID string, n int) error
	// Finish marks the job done and records the output file name.
	Finish(ctx context.Context, jobID, filename string, at time.Time) error
	// Fail records a terminal error. Finished stays false.
	Fail(ctx context.Context, jobID, message string, at time.Time) error
	// Get returns the current record. An untouched store yields the zero value.
	Get(ctx context.Context) (Progress, error)
}
