package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Registry is the concurrency-safe store of job records. It owns the
// canonical copy of every job; callers only ever see snapshots. Each job
// has exactly one writer (its worker), so the registry arbitrates between
// that writer and any number of readers, never between writers.
type Registry struct {
	mu    sync.RWMutex
	clock Clock
	jobs  map[string]*Job
	order []string
}

// NewRegistry creates an empty registry using the wall clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(realClock{})
}

// NewRegistryWithClock creates an empty registry with a custom clock
// (for testing).
func NewRegistryWithClock(clock Clock) *Registry {
	return &Registry{
		clock: clock,
		jobs:  make(map[string]*Job),
	}
}

// Create inserts a new pending job for owner (may be empty) and returns
// its snapshot. The job is fully initialized before it becomes visible
// to any reader.
func (r *Registry) Create(owner string) Job {
	now := r.clock.Now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		Owner:     owner,
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	return job.snapshot()
}

// Get returns a snapshot of the job with the given id, or ErrNotFound.
// The snapshot reflects one consistent point in time; a concurrent
// update is either fully visible or not at all.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job.snapshot(), nil
}

// List returns snapshots of all jobs, newest first. Each element is
// individually consistent; the list as a whole is not a single atomic
// snapshot across jobs.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.jobs[r.order[i]].snapshot())
	}
	return out
}

// Update applies mutate to the job with the given id under the registry
// lock and refreshes UpdatedAt. The mutator must be short and must not
// block; it runs inside the critical section.
func (r *Registry) Update(id string, mutate func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(job)
	job.UpdatedAt = r.clock.Now().UTC()
	return nil
}

// Len reports the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
