// Package infra serves status, health and metrics endpoints.
package infra

import (
	"net/http"
	"time"
)

// Handlers holds the dependencies for infrastructure HTTP handlers.
type Handlers struct {
	StartTime    time.Time
	DeliveryMode string
	Metrics      http.Handler
}

// New creates a new instance of infrastructure handlers.
func New(startTime time.Time, deliveryMode string, metrics http.Handler) *Handlers {
	return &Handlers{
		StartTime:    startTime,
		DeliveryMode: deliveryMode,
		Metrics:      metrics,
	}
}
