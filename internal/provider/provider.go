// Package provider holds the provider-neutral result of an upstream call.
package provider

import (
	"path"
	"strings"
	"time"
)

// Response is the raw reply of one successful provider call. The body is
// opaque; interpreting it is the extractor's job.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// ModelFromEndpoint returns the model segment of a Gemini-style endpoint
// such as .../models/gemini-2.0-flash:generateContent. It returns "" when
// the endpoint names no model.
func ModelFromEndpoint(endpoint string) string {
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		endpoint = endpoint[:i]
	}
	if !strings.Contains(endpoint, "/models/") {
		return ""
	}
	model := path.Base(endpoint)
	if i := strings.IndexByte(model, ':'); i >= 0 {
		model = model[:i]
	}
	return model
}
