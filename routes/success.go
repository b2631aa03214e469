package routes

import (
	"net/http"

	"pixforge/logger"
)

// SuccessQueryHandler returns one success record (?run=&file=) or a whole run (?run=).
func (h *Handlers) SuccessQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Success == nil {
		http.Error(w, "success store not available", http.StatusServiceUnavailable)
		return
	}

	run := r.URL.Query().Get("run")
	if run == "" {
		http.Error(w, "run parameter required", http.StatusBadRequest)
		return
	}

	file := r.URL.Query().Get("file")
	if file == "" {
		records, err := h.Success.ListRun(run)
		if err != nil {
			logger.Errorf("Failed to list success records for run %s: %v", run, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"run":     run,
			"records": records,
			"count":   len(records),
		})
		return
	}

	record, err := h.Success.Get(run, file)
	if err != nil {
		logger.Errorf("Failed to query success for %s/%s: %v", run, file, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if record == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"run":     run,
			"file":    file,
			"status":  "not_found",
			"message": "No success record found for this file",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":             record.RunID,
		"file":            record.File,
		"status":          "completed",
		"pipeline":        record.Pipeline,
		"outputs":         record.Outputs,
		"original_bytes":  record.OriginalBytes,
		"optimized_bytes": record.OptimizedBytes,
		"timestamp":       record.Timestamp,
	})
}

// SuccessListHandler lists every success record (for admin/debugging).
func (h *Handlers) SuccessListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Success == nil {
		http.Error(w, "success store not available", http.StatusServiceUnavailable)
		return
	}

	records, err := h.Success.List()
	if err != nil {
		logger.Errorf("Failed to list success records: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}
