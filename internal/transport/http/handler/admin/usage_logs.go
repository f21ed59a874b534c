package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/drawgate/internal/types"
)

const maxLogLimit = 500

// GetRequestLogs handles GET /api/admin/logs.
func (h *Handlers) GetRequestLogs(w http.ResponseWriter, r *http.Request) {
	if !h.logsEnabled(w) {
		return
	}
	filter := parseLogFilter(r)

	logs, err := h.Logs.GetRequestLogs(r.Context(), filter)
	if err != nil {
		shared.WriteJSONError(w, "failed to get request logs", types.KindInternal, http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*storage.RequestLog{}
	}

	shared.WriteJSON(w, map[string]any{
		"logs":   logs,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}, http.StatusOK)
}

// DeleteRequestLogs handles DELETE /api/admin/logs?before=YYYY-MM-DD.
func (h *Handlers) DeleteRequestLogs(w http.ResponseWriter, r *http.Request) {
	if !h.logsEnabled(w) {
		return
	}

	before := r.URL.Query().Get("before")
	if before == "" {
		before = r.URL.Query().Get("before_date")
	}
	if before == "" {
		shared.WriteJSONError(w, "before query parameter is required (format: YYYY-MM-DD)", types.KindValidation, http.StatusBadRequest)
		return
	}

	deleted, err := h.Logs.DeleteRequestLogs(r.Context(), before)
	if errors.Is(err, storage.ErrInvalidInput) {
		shared.WriteJSONError(w, "invalid date format, use YYYY-MM-DD", types.KindValidation, http.StatusBadRequest)
		return
	}
	if err != nil {
		shared.WriteJSONError(w, "failed to delete logs", types.KindInternal, http.StatusInternalServerError)
		return
	}

	shared.WriteJSON(w, map[string]any{
		"deleted_count": deleted,
		"before":        before,
	}, http.StatusOK)
}

func (h *Handlers) logsEnabled(w http.ResponseWriter) bool {
	if h.Logs == nil {
		shared.WriteJSONError(w, "request logging is disabled", types.KindNotFound, http.StatusNotFound)
		return false
	}
	return true
}

// parseLogFilter creates a LogFilter from query parameters.
func parseLogFilter(r *http.Request) storage.LogFilter {
	filter := storage.LogFilter{
		Limit:  50, // default
		Offset: 0,
	}

	q := r.URL.Query()
	if v := q.Get("error_kind"); v != "" {
		filter.ErrorKind = v
	}
	if v := q.Get("model"); v != "" {
		filter.Model = v
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = min(limit, maxLogLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndDate = &end
		}
	}

	return filter
}
