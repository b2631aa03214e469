package routes

import (
	"net/http"

	"pixforge/logger"
)

// FailureQueryHandler returns one failure (?run=&file=) or every failure of a run (?run=).
func (h *Handlers) FailureQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Failures == nil {
		http.Error(w, "failure store not available", http.StatusServiceUnavailable)
		return
	}

	run := r.URL.Query().Get("run")
	if run == "" {
		http.Error(w, "run parameter required", http.StatusBadRequest)
		return
	}

	file := r.URL.Query().Get("file")
	if file == "" {
		records, err := h.Failures.ListRun(run)
		if err != nil {
			logger.Errorf("Failed to list failures for run %s: %v", run, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"run":      run,
			"failures": records,
			"count":    len(records),
		})
		return
	}

	record, err := h.Failures.Get(run, file)
	if err != nil {
		logger.Errorf("Failed to query failure for %s/%s: %v", run, file, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if record == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"run":     run,
			"file":    file,
			"status":  "not_failed",
			"message": "No failure recorded for this file",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":       record.RunID,
		"file":      record.File,
		"status":    "failed",
		"pipeline":  record.Pipeline,
		"kind":      record.Kind,
		"error":     record.Error,
		"timestamp": record.Timestamp,
	})
}

// FailureListHandler handles listing all failures
func (h *Handlers) FailureListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Failures == nil {
		http.Error(w, "failure store not available", http.StatusServiceUnavailable)
		return
	}

	failuresList, err := h.Failures.List()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failuresList,
		"count":    len(failuresList),
	})
}
