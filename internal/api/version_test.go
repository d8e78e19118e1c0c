package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func versionProbe(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return RequireClientVersion("1.0.0")(next), &reached
}

func TestRequireClientVersionMatch(t *testing.T) {
	h, reached := versionProbe(t)

	req := httptest.NewRequest("GET", "/jobs", nil)
	req.Header.Set(clientVersionHeader, "1.0.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !*reached {
		t.Error("matching version must pass through")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireClientVersionMissing(t *testing.T) {
	h, reached := versionProbe(t)

	req := httptest.NewRequest("GET", "/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if *reached {
		t.Error("missing version must not pass through")
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var body versionMismatch
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != "Version mismatch" {
		t.Errorf("unexpected error %q", body.Error)
	}
	if body.BackendVersion != "1.0.0" {
		t.Errorf("unexpected backend version %q", body.BackendVersion)
	}
	if body.FrontendVersion != nil {
		t.Errorf("missing header must serialize frontend_version as null, got %v", *body.FrontendVersion)
	}
}

func TestRequireClientVersionMismatch(t *testing.T) {
	h, reached := versionProbe(t)

	req := httptest.NewRequest("GET", "/jobs", nil)
	req.Header.Set(clientVersionHeader, "0.9.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if *reached {
		t.Error("stale version must not pass through")
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var body versionMismatch
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.FrontendVersion == nil || *body.FrontendVersion != "0.9.0" {
		t.Errorf("expected frontend_version 0.9.0, got %v", body.FrontendVersion)
	}
	if body.BackendVersion != "1.0.0" {
		t.Errorf("unexpected backend version %q", body.BackendVersion)
	}
}
