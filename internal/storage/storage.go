// Package storage defines the image persistence contract and its shared helpers.
package storage

import (
	"context"
	"errors"

	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// Re-export types from models package for convenience
type (
	Image      = models.Image
	RequestLog = models.RequestLog
	LogFilter  = models.LogFilter
	UsageStats = models.UsageStats
)

// Common errors returned by storage operations
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStorageClosed = errors.New("storage is closed")
	ErrIntegrity     = errors.New("stored image failed integrity check")
)

// ImageStore persists image bytes and returns the identifier that later
// resolves to them (a filename or an opaque key).
type ImageStore interface {
	Save(ctx context.Context, img *models.Image) (string, error)
}

// ImageLoader resolves a key back to its image. Unknown keys return ErrNotFound.
type ImageLoader interface {
	Load(ctx context.Context, key string) (*models.Image, error)
}

// KeyedStore is a database-backed store: keys are random and loadable.
type KeyedStore interface {
	ImageStore
	ImageLoader
	Close() error
}

// LogStore records generation requests.
type LogStore interface {
	LogRequest(ctx context.Context, log *models.RequestLog) error
	GetRequestLogs(ctx context.Context, filter models.LogFilter) ([]*models.RequestLog, error)
	DeleteRequestLogs(ctx context.Context, olderThan string) (int64, error)
	GetUsageStats(ctx context.Context) (*models.UsageStats, error)
}

// Backend is a database that stores both images and request logs.
type Backend interface {
	KeyedStore
	LogStore
}
