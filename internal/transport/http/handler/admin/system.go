package admin

import (
	"net/http"
	"runtime"
	"time"

	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/drawgate/internal/version"
)

// AdminInfo handles GET /api/admin/info.
func (h *Handlers) AdminInfo(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.StartTime)

	resp := map[string]any{
		"version":     version.Version,
		"go_version":  runtime.Version(),
		"uptime":      uptime.String(),
		"uptime_secs": int64(uptime.Seconds()),
		"deployment":  h.Info,
		"request_log": h.Logs != nil,
	}

	if h.Logs != nil {
		if stats, err := h.Logs.GetUsageStats(r.Context()); err == nil {
			resp["stats"] = map[string]any{
				"total_requests": stats.TotalRequests,
				"success_count":  stats.SuccessCount,
				"error_count":    stats.ErrorCount,
			}
		}
	}

	shared.WriteJSON(w, resp, http.StatusOK)
}
