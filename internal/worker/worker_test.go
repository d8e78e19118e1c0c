package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kalambet/scribe/internal/classify"
	"github.com/kalambet/scribe/internal/jobs"
)

// recordingStore applies mutations to a single in-memory job and records
// the status/progress after each update.
type recordingStore struct {
	mu       sync.Mutex
	job      jobs.Job
	statuses []jobs.Status
	progress []int
	failOn   int // fail the nth Update call (1-based), 0 disables
	calls    int
}

func (s *recordingStore) Update(id string, mutate func(*jobs.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn != 0 && s.calls == s.failOn {
		return jobs.ErrNotFound
	}
	mutate(&s.job)
	s.statuses = append(s.statuses, s.job.Status)
	s.progress = append(s.progress, s.job.Progress)
	return nil
}

func (s *recordingStore) snapshot() jobs.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, jobID string) (string, error) {
	return m.text, m.err
}

type mockCategorizer struct {
	result classify.Result
	calls  int
	mu     sync.Mutex
}

func (m *mockCategorizer) Categorize(ctx context.Context, text, userID string) classify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result
}

func newTestWorker(store JobStore, tr Transcriber, cat Categorizer) *Worker {
	// Zero delays keep tests fast.
	return New(store, tr, cat, Config{Steps: 3})
}

func TestRunCompletesJob(t *testing.T) {
	store := &recordingStore{job: jobs.Job{ID: "j1", Status: jobs.StatusPending}}
	cat := &mockCategorizer{result: classify.Result{
		Categories: []string{"Automotive"},
		Sentiment:  "positive",
		Confidence: 0.8,
	}}
	w := newTestWorker(store, &mockTranscriber{text: "some transcript"}, cat)

	w.Run(context.Background(), "j1", "alice")

	got := store.snapshot()
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %q (error %q)", got.Status, got.Error)
	}
	if got.Progress != 100 {
		t.Errorf("expected progress 100, got %d", got.Progress)
	}
	if got.Result != "some transcript" {
		t.Errorf("unexpected result %q", got.Result)
	}
	if got.Categories == nil || got.Categories.Categories[0] != "Automotive" {
		t.Errorf("unexpected categories %+v", got.Categories)
	}
	if got.Error != "" {
		t.Errorf("completed job must not carry an error, got %q", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if cat.calls != 1 {
		t.Errorf("expected one categorize call, got %d", cat.calls)
	}
}

func TestRunProgressSequence(t *testing.T) {
	store := &recordingStore{job: jobs.Job{ID: "j1", Status: jobs.StatusPending}}
	w := newTestWorker(store, &mockTranscriber{text: "t"}, &mockCategorizer{result: classify.Fallback()})

	w.Run(context.Background(), "j1", "")

	want := []int{10, 37, 63, 90, 100}
	if len(store.progress) != len(want) {
		t.Fatalf("expected %d updates, got %d: %v", len(want), len(store.progress), store.progress)
	}
	for i, p := range want {
		if store.progress[i] != p {
			t.Errorf("update %d: expected progress %d, got %d", i, p, store.progress[i])
		}
	}
	// Progress never decreases.
	for i := 1; i < len(store.progress); i++ {
		if store.progress[i] < store.progress[i-1] {
			t.Errorf("progress regressed at update %d: %v", i, store.progress)
		}
	}
}

func TestRunTranscriberFailure(t *testing.T) {
	store := &recordingStore{job: jobs.Job{ID: "j1", Status: jobs.StatusPending}}
	w := newTestWorker(store, &mockTranscriber{err: errors.New("backend down")}, &mockCategorizer{})

	w.Run(context.Background(), "j1", "")

	got := store.snapshot()
	if got.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %q", got.Status)
	}
	if got.Error == "" {
		t.Error("expected error to be recorded")
	}
	if got.Result != "" || got.Categories != nil {
		t.Errorf("failed job must not carry a result, got %q / %+v", got.Result, got.Categories)
	}
	// Progress stays at the last step value, not reset and not 100.
	if got.Progress != 90 {
		t.Errorf("expected progress frozen at 90, got %d", got.Progress)
	}
	if got.CompletedAt != nil {
		t.Error("failed job must not carry CompletedAt")
	}
}

func TestRunStoreFailureMarksFailed(t *testing.T) {
	// Second update (first step) fails; the failure write itself succeeds.
	store := &recordingStore{job: jobs.Job{ID: "j1", Status: jobs.StatusPending}, failOn: 2}
	w := newTestWorker(store, &mockTranscriber{text: "t"}, &mockCategorizer{})

	w.Run(context.Background(), "j1", "")

	got := store.snapshot()
	if got.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %q", got.Status)
	}
	if got.Progress != 10 {
		t.Errorf("expected progress frozen at 10, got %d", got.Progress)
	}
}

func TestDefaultSteps(t *testing.T) {
	store := &recordingStore{job: jobs.Job{ID: "j1"}}
	w := New(store, &mockTranscriber{text: "t"}, &mockCategorizer{}, Config{Steps: -1})

	w.Run(context.Background(), "j1", "")

	if w.steps != 3 {
		t.Errorf("expected default of 3 steps, got %d", w.steps)
	}
}

func TestDispatcherRunsJobsToCompletion(t *testing.T) {
	registry := jobs.NewRegistry()
	cat := &mockCategorizer{result: classify.Fallback()}
	w := New(registry, &mockTranscriber{text: "transcript"}, cat, Config{Steps: 3})
	d := NewDispatcher(w, 4)

	var ids []string
	for i := 0; i < 10; i++ {
		job := registry.Create("")
		ids = append(ids, job.ID)
		d.Dispatch(job.ID, job.Owner)
	}
	d.Wait()

	for _, id := range ids {
		got, err := registry.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != jobs.StatusCompleted {
			t.Errorf("job %s: expected completed, got %q", id, got.Status)
		}
		if got.Progress != 100 {
			t.Errorf("job %s: expected progress 100, got %d", id, got.Progress)
		}
	}
}

func TestDispatcherSubmitReturnsImmediately(t *testing.T) {
	registry := jobs.NewRegistry()
	w := New(registry, &mockTranscriber{text: "t"}, &mockCategorizer{}, Config{Steps: 1})
	// One slot: later jobs queue behind the semaphore.
	d := NewDispatcher(w, 1)

	for i := 0; i < 5; i++ {
		job := registry.Create("")
		d.Dispatch(job.ID, job.Owner)
	}
	// Reaching here without blocking is the point; drain for cleanliness.
	d.Wait()

	if registry.Len() != 5 {
		t.Errorf("expected 5 jobs, got %d", registry.Len())
	}
}
