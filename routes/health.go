package routes

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"pixforge/logger"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	StartTime string            `json:"start_time"`
	Stores    map[string]string `json:"stores"`
}

// Global start time for uptime calculation
var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports process uptime and the state of the history stores.
// Any unhealthy store turns the response into a 503.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Health check request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version(),
		GoVersion: runtime.Version(),
		Uptime:    formatUptime(time.Since(startTime)),
		StartTime: startTime.Format("2006-01-02 15:04:05 MST"),
		Stores:    map[string]string{},
	}

	checks := map[string]func() error{}
	if h.Failures != nil {
		checks["failures"] = h.Failures.CheckHealth
	}
	if h.Success != nil {
		checks["success"] = h.Success.CheckHealth
	}
	status := http.StatusOK
	for name, check := range checks {
		if err := check(); err != nil {
			logger.Warnf("health check for %s store failed: %v", name, err)
			response.Stores[name] = err.Error()
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Stores[name] = "ok"
	}

	writeJSON(w, status, response)
}
