package api

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startedAt time.Time
	version   string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), version: version}
}

// HealthCheck - GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   h.version,
		"startedAt": h.startedAt.Format(time.RFC3339),
		"uptimeSec": int64(time.Since(h.startedAt).Seconds()),
	})
}
