package admin

import (
	"net/http"

	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// GetUsageStats handles GET /api/admin/stats.
func (h *Handlers) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	if !h.logsEnabled(w) {
		return
	}

	stats, err := h.Logs.GetUsageStats(r.Context())
	if err != nil {
		shared.WriteJSONError(w, "failed to get usage stats", types.KindInternal, http.StatusInternalServerError)
		return
	}

	shared.WriteJSON(w, stats, http.StatusOK)
}
