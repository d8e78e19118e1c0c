// Package worker drives a single transcription job from pending to a
// terminal state, independently of the request that created it.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kalambet/scribe/internal/classify"
	"github.com/kalambet/scribe/internal/jobs"
)

// JobStore abstracts the registry operations a worker needs.
// Implemented by jobs.Registry.
type JobStore interface {
	Update(id string, mutate func(*jobs.Job)) error
}

// Transcriber produces the transcription text for a job.
type Transcriber interface {
	Transcribe(ctx context.Context, jobID string) (string, error)
}

// Categorizer classifies transcription text. It never fails; provider
// errors surface as degraded results.
type Categorizer interface {
	Categorize(ctx context.Context, text, userID string) classify.Result
}

// Config tunes the simulated work phase.
type Config struct {
	// Steps is the number of simulated work steps between 10% and 90%
	// progress. Defaults to 3 if <= 0.
	Steps int
	// StepDelayMin/StepDelayMax bound the random per-step delay.
	// Zero delays disable sleeping (tests).
	StepDelayMin time.Duration
	StepDelayMax time.Duration
}

// Worker advances jobs through the progress-reporting state machine.
// Exactly one worker run exists per job; runs are never restarted or
// re-entered.
type Worker struct {
	store        JobStore
	transcriber  Transcriber
	categorizer  Categorizer
	steps        int
	stepDelayMin time.Duration
	stepDelayMax time.Duration
	logger       *slog.Logger
}

// New creates a Worker with the given dependencies.
func New(store JobStore, transcriber Transcriber, categorizer Categorizer, cfg Config) *Worker {
	steps := cfg.Steps
	if steps <= 0 {
		steps = 3
	}
	return &Worker{
		store:        store,
		transcriber:  transcriber,
		categorizer:  categorizer,
		steps:        steps,
		stepDelayMin: cfg.StepDelayMin,
		stepDelayMax: cfg.StepDelayMax,
		logger:       slog.Default(),
	}
}

// Run drives the job to a terminal state. Any error along the way marks
// the job failed with its progress frozen at the last written value; a
// successful run leaves it completed. Results are communicated only
// through the job store, never returned.
func (w *Worker) Run(ctx context.Context, jobID, owner string) {
	if err := w.process(ctx, jobID, owner); err != nil {
		w.logger.Warn("job failed", "job_id", jobID, "error", err)
		if failErr := w.store.Update(jobID, func(j *jobs.Job) {
			j.Status = jobs.StatusFailed
			j.Error = err.Error()
		}); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", jobID, "error", failErr)
		}
		return
	}
	w.logger.Info("job completed", "job_id", jobID)
}

func (w *Worker) process(ctx context.Context, jobID, owner string) error {
	if err := w.store.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusProcessing
		j.Progress = 10
	}); err != nil {
		return fmt.Errorf("starting job: %w", err)
	}

	// Simulated work: progress climbs evenly from 10 to 90.
	for k := 1; k <= w.steps; k++ {
		if err := w.sleep(ctx); err != nil {
			return fmt.Errorf("interrupted during step %d: %w", k, err)
		}
		progress := 10 + int(math.Round(float64(k)*80/float64(w.steps)))
		if err := w.store.Update(jobID, func(j *jobs.Job) {
			j.Progress = progress
		}); err != nil {
			return fmt.Errorf("recording step %d: %w", k, err)
		}
	}

	text, err := w.transcriber.Transcribe(ctx, jobID)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}

	// Categorization degrades internally instead of failing, so a
	// provider outage alone never fails the job.
	result := w.categorizer.Categorize(ctx, text, owner)

	now := time.Now().UTC()
	if err := w.store.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusCompleted
		j.Progress = 100
		j.Result = text
		j.Categories = &result
		j.CompletedAt = &now
	}); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	return nil
}

// sleep blocks for a random duration within the configured step bounds,
// without holding any lock.
func (w *Worker) sleep(ctx context.Context) error {
	d := w.stepDelayMin
	if w.stepDelayMax > w.stepDelayMin {
		d += rand.N(w.stepDelayMax - w.stepDelayMin)
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
