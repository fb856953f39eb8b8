package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the process mode and uptime for dashboards.
type StatusHandler struct {
	Mode      string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler for a process started now.
func NewStatusHandler(mode string) *StatusHandler {
	return &StatusHandler{Mode: mode, StartedAt: time.Now().UTC()}
}

// GetStatus responds with the current mode and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"started_at":     h.StartedAt.Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
