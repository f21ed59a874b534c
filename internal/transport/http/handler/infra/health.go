package infra

import (
	"net/http"
	"time"

	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/drawgate/internal/version"
)

// RootStatus returns JSON status and version information at /.
func (h *Handlers) RootStatus(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, map[string]any{
		"name":          "drawgate",
		"version":       version.Version,
		"status":        "running",
		"delivery_mode": h.DeliveryMode,
		"api":           "/api/generate",
		"admin":         "/api/admin",
	}, http.StatusOK)
}

// HealthCheck handler returns the application health status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, map[string]any{
		"status":      "active",
		"app":         "drawgate",
		"uptime_secs": int64(time.Since(h.StartTime).Seconds()),
	}, http.StatusOK)
}

// ServeMetrics exposes Prometheus metrics at /metrics.
func (h *Handlers) ServeMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.Metrics.ServeHTTP(w, r)
}
