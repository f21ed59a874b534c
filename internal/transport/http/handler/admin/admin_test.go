package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandalnilabja/drawgate/internal/storage/models"
	"github.com/mandalnilabja/drawgate/internal/storage/sqldb"
)

func setup(t *testing.T) (*Handlers, *sqldb.Storage) {
	t.Helper()
	store, err := sqldb.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := New(store, time.Now(), SystemInfo{DeliveryMode: "key", StorageBackend: "sqlite", Model: "gemini-test"})
	return h, store
}

func seed(t *testing.T, store *sqldb.Storage) {
	t.Helper()
	ctx := context.Background()
	old := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	entries := []*models.RequestLog{
		{RequestID: "r1", Model: "gemini-test", StatusCode: 200, Strategy: "keyed-data", ImageBytes: 100, CreatedAt: old},
		{RequestID: "r2", Model: "gemini-test", StatusCode: 502, ErrorKind: "extraction_failed"},
		{RequestID: "r3", Model: "gemini-other", StatusCode: 200, Strategy: "long-run", ImageBytes: 50},
	}
	for _, e := range entries {
		require.NoError(t, store.LogRequest(ctx, e))
	}
}

func TestGetRequestLogs(t *testing.T) {
	h, store := setup(t)
	seed(t, store)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by error kind", "?error_kind=extraction_failed", 1},
		{"by model", "?model=gemini-other", 1},
		{"limit", "?limit=2", 2},
		{"offset", "?offset=2", 1},
		{"start date", "?start_date=2024-06-01", 2},
		{"end date", "?end_date=2024-01-10", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetRequestLogs(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Logs []*models.RequestLog `json:"logs"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body.Logs, tt.want)
		})
	}
}

func TestParseLogFilterCapsLimit(t *testing.T) {
	filter := parseLogFilter(httptest.NewRequest(http.MethodGet, "/?limit=100000&offset=-1", nil))
	assert.Equal(t, maxLogLimit, filter.Limit)
	assert.Equal(t, 0, filter.Offset)
}

func TestDeleteRequestLogs(t *testing.T) {
	h, store := setup(t)
	seed(t, store)

	rec := httptest.NewRecorder()
	h.DeleteRequestLogs(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/logs", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteRequestLogs(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/logs?before=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")

	rec = httptest.NewRecorder()
	h.DeleteRequestLogs(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/logs?before_date=2024-02-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		DeletedCount int64 `json:"deleted_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.DeletedCount)
}

func TestGetUsageStats(t *testing.T) {
	h, store := setup(t)
	seed(t, store)

	rec := httptest.NewRecorder()
	h.GetUsageStats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.UsageStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, int64(150), stats.TotalImageBytes)
	assert.Equal(t, 1, stats.ByErrorKind["extraction_failed"])
}

func TestLogsDisabled(t *testing.T) {
	h := New(nil, time.Now(), SystemInfo{DeliveryMode: "raw"})

	for name, handler := range map[string]http.HandlerFunc{
		"logs":   h.GetRequestLogs,
		"delete": h.DeleteRequestLogs,
		"stats":  h.GetUsageStats,
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/?before=2024-01-01", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}

	rec := httptest.NewRecorder()
	h.AdminInfo(rec, httptest.NewRequest(http.MethodGet, "/api/admin/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"request_log":false`)
}

func TestAdminInfo(t *testing.T) {
	h, store := setup(t)
	seed(t, store)

	rec := httptest.NewRecorder()
	h.AdminInfo(rec, httptest.NewRequest(http.MethodGet, "/api/admin/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Deployment SystemInfo     `json:"deployment"`
		Stats      map[string]int `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gemini-test", body.Deployment.Model)
	assert.Equal(t, 3, body.Stats["total_requests"])
}
