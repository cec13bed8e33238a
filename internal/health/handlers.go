package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/groovybits/ltntstools/pkg/version"
)

// Response is the JSON body served by /healthz.
type Response struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]*Check `json:"checks,omitempty"`
}

// Handler serves the health, readiness and liveness HTTP endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler creates a Handler backed by manager.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// HandleHealth runs every registered checker and reports the combined
// result.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := h.manager.RunChecks(ctx)
	status := h.manager.GetOverallStatus()

	code := http.StatusOK
	if status == StatusDown {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, Response{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version.Version,
		Checks:    checks,
	})
}

// HandleReady reports the cached overall status without re-running
// checks, suitable for a frequently-polled readiness probe.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	status := h.manager.GetOverallStatus()
	code := http.StatusOK
	if status == StatusDown {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, struct {
		Status Status `json:"status"`
	}{status})
}

// HandleLive reports that the process is up; it never depends on any
// checker result.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{"alive"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
