// Package routes exposes pixforge's run history and metrics over a small
// read-only HTTP API.
package routes

import (
	"encoding/json"
	"net/http"

	"pixforge/failures"
	"pixforge/logger"
	"pixforge/metrics"
	"pixforge/success"
)

// Handlers serves the history stores. Any store may be nil.
type Handlers struct {
	Failures *failures.Store
	Success  *success.Store
	Metrics  *metrics.Recorder
}

// Register attaches every route to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/failures", h.FailureQueryHandler)
	mux.HandleFunc("/failures/list", h.FailureListHandler)
	mux.HandleFunc("/success", h.SuccessQueryHandler)
	mux.HandleFunc("/success/list", h.SuccessListHandler)
	mux.Handle("/metrics", h.Metrics.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
