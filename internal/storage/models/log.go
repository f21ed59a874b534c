package models

import "time"

// RequestLog represents one logged generation request
type RequestLog struct {
	ID             string    `json:"id" bson:"_id"`
	RequestID      string    `json:"request_id" bson:"request_id"`
	Model          string    `json:"model" bson:"model"`
	PromptTokens   int       `json:"prompt_tokens" bson:"prompt_tokens"`
	HasReference   bool      `json:"has_reference" bson:"has_reference"`
	StatusCode     int       `json:"status_code" bson:"status_code"`
	ErrorKind      string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty" bson:"upstream_status,omitempty"`
	Strategy       string    `json:"strategy,omitempty" bson:"strategy,omitempty"`
	ImageKey       string    `json:"image_key,omitempty" bson:"image_key,omitempty"`
	ImageBytes     int64     `json:"image_bytes" bson:"image_bytes"`
	DurationMs     int64     `json:"duration_ms" bson:"duration_ms"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// LogFilter contains parameters for filtering request logs
type LogFilter struct {
	ErrorKind string
	Model     string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// UsageStats aggregates request logs
type UsageStats struct {
	TotalRequests   int            `json:"total_requests"`
	SuccessCount    int            `json:"success_count"`
	ErrorCount      int            `json:"error_count"`
	TotalImageBytes int64          `json:"total_image_bytes"`
	ByErrorKind     map[string]int `json:"by_error_kind,omitempty"`
	ByStrategy      map[string]int `json:"by_strategy,omitempty"`
}
