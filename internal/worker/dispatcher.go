package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Dispatcher launches one worker goroutine per job, fire-and-forget from
// the caller's point of view. A weighted semaphore bounds how many jobs
// make progress at once; jobs over the limit stay pending until a slot
// frees up. Submitting never blocks.
type Dispatcher struct {
	worker *Worker
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher allowing up to maxConcurrent
// in-flight workers (defaults to 32 if <= 0).
func NewDispatcher(w *Worker, maxConcurrent int64) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	return &Dispatcher{
		worker: w,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: slog.Default(),
	}
}

// Dispatch starts the worker for a freshly created job and returns
// immediately. Once started, a job always runs to a terminal state;
// there is no cancellation path, so the worker gets a background
// context rather than the request's.
func (d *Dispatcher) Dispatch(jobID, owner string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Error("acquiring worker slot", "job_id", jobID, "error", err)
			return
		}
		defer d.sem.Release(1)

		d.worker.Run(ctx, jobID, owner)
	}()
}

// Wait blocks until every dispatched worker has reached a terminal
// state. Used by tests and on shutdown paths that want to drain.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
