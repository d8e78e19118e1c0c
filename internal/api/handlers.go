// Package api exposes the job engine over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/scribe/internal/jobs"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Submitter starts background processing for a freshly created job.
// Implemented by worker.Dispatcher.
type Submitter interface {
	Dispatch(jobID, owner string)
}

// CacheCounter reports the number of unexpired entries in a cache.
type CacheCounter interface {
	CacheLen() int
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Registry    *jobs.Registry
	Dispatcher  Submitter
	PrefCache   CacheCounter
	ResultCache CacheCounter
	Version     string
}

// NewHandler returns the HTTP API. All job endpoints require a matching
// X-Frontend-Version header; /health and /version do not.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/version", handleVersion(deps.Version))

	r.Group(func(r chi.Router) {
		r.Use(RequireClientVersion(deps.Version))
		r.Post("/transcribe", handleSubmit(deps))
		r.Get("/jobs", handleListJobs(deps))
		r.Get("/jobs/{id}", handleGetJob(deps))
		r.Get("/caches/stats", handleCacheStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"version": version})
	}
}

// SubmitRequest is the optional body of POST /transcribe. Audio bytes
// are accepted and discarded by the simulated transcription backend.
type SubmitRequest struct {
	Owner string `json:"owner"`
}

func handleSubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		job := deps.Registry.Create(req.Owner)
		deps.Dispatcher.Dispatch(job.ID, job.Owner)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     job.ID,
			"status": string(job.Status),
		})
	}
}

func handleGetJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := deps.Registry.Get(id)
		if errors.Is(err, jobs.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job)
	}
}

func handleListJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := deps.Registry.List()
		if list == nil {
			list = []jobs.Job{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

func handleCacheStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"preferences":     deps.PrefCache.CacheLen(),
			"categorizations": deps.ResultCache.CacheLen(),
		})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
