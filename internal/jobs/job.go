// Package jobs holds the transcription job model and the in-memory
// registry that owns every job for the lifetime of the process.
package jobs

import (
	"errors"
	"time"

	"github.com/kalambet/scribe/internal/classify"
)

// ErrNotFound is returned when a requested job does not exist.
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one tracked unit of asynchronous transcription and
// categorization work. Once a job leaves pending/processing, exactly one
// of Result+Categories (completed) or Error (failed) is populated.
type Job struct {
	ID          string           `json:"id"`
	Owner       string           `json:"owner,omitempty"`
	Status      Status           `json:"status"`
	Progress    int              `json:"progress"`
	Result      string           `json:"result,omitempty"`
	Categories  *classify.Result `json:"categories,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// snapshot returns an independent copy of the job, safe to hand to
// readers while a worker keeps mutating the canonical record.
func (j *Job) snapshot() Job {
	cp := *j
	if j.Categories != nil {
		categories := *j.Categories
		if j.Categories.Categories != nil {
			categories.Categories = make([]string, len(j.Categories.Categories))
			copy(categories.Categories, j.Categories.Categories)
		}
		cp.Categories = &categories
	}
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		cp.CompletedAt = &completedAt
	}
	return cp
}
