package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// clientVersionHeader carries the client build version on every API
// request. The header name predates this service and is kept for
// compatibility with deployed frontends.
const clientVersionHeader = "X-Frontend-Version"

// versionMismatch is the payload returned on client/server version skew.
// FrontendVersion is a pointer so a missing header serializes as null.
type versionMismatch struct {
	Error           string  `json:"error"`
	Message         string  `json:"message"`
	BackendVersion  string  `json:"backend_version"`
	FrontendVersion *string `json:"frontend_version"`
}

// RequireClientVersion rejects requests whose X-Frontend-Version header
// is missing or differs from the server version, with 409 Conflict.
func RequireClientVersion(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(clientVersionHeader)
			if got == "" {
				writeVersionMismatch(w, versionMismatch{
					Error:          "Version mismatch",
					Message:        fmt.Sprintf("Frontend version header is missing. API requests must include %s header.", clientVersionHeader),
					BackendVersion: version,
				})
				return
			}
			if got != version {
				writeVersionMismatch(w, versionMismatch{
					Error:           "Version mismatch",
					Message:         fmt.Sprintf("Your application (v%s) is out of date with the server (v%s). Please refresh your browser.", got, version),
					BackendVersion:  version,
					FrontendVersion: &got,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeVersionMismatch(w http.ResponseWriter, payload versionMismatch) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	json.NewEncoder(w).Encode(payload)
}
