// Package admin serves request log inspection endpoints.
package admin

import (
	"time"

	"github.com/mandalnilabja/drawgate/internal/storage"
)

// Handlers holds the dependencies for admin HTTP handlers.
type Handlers struct {
	Logs      storage.LogStore
	StartTime time.Time
	Info      SystemInfo
}

// SystemInfo is the static deployment summary reported by /api/admin/info.
type SystemInfo struct {
	DeliveryMode   string `json:"delivery_mode"`
	StorageBackend string `json:"storage_backend"`
	Model          string `json:"model"`
	DataDir        string `json:"data_dir"`
}

// New creates a new instance of admin handlers. logs may be nil when
// request logging is disabled.
func New(logs storage.LogStore, startTime time.Time, info SystemInfo) *Handlers {
	return &Handlers{
		Logs:      logs,
		StartTime: startTime,
		Info:      info,
	}
}
