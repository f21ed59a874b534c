package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the stable, caller-visible classification of a pipeline failure.
type ErrorKind string

// Error kinds, one per pipeline stage that can fail.
const (
	KindValidation           ErrorKind = "validation_error"
	KindReferenceUnavailable ErrorKind = "reference_unavailable"
	KindProviderRejected     ErrorKind = "provider_rejected"
	KindTransport            ErrorKind = "transport_error"
	KindExtractionFailed     ErrorKind = "extraction_failed"
	KindStorageFailure       ErrorKind = "storage_failure"
	KindNotFound             ErrorKind = "not_found"
	KindInternal             ErrorKind = "server_error"
)

// HTTPStatus maps a kind to the status code reported to the caller.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindReferenceUnavailable:
		return http.StatusBadRequest
	case KindProviderRejected, KindTransport, KindExtractionFailed:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed failure returned by every pipeline stage.
type Error struct {
	Kind    ErrorKind
	Message string

	// UpstreamStatus is set for KindProviderRejected.
	UpstreamStatus int

	// Timeout marks transport failures caused by a deadline.
	Timeout bool

	// Diagnostic holds bounded upstream content for logs. Never sent to callers.
	Diagnostic string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for this error.
func (e *Error) Status() int {
	if e.Kind == KindTransport && e.Timeout {
		return http.StatusGatewayTimeout
	}
	return e.Kind.HTTPStatus()
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return NewError(KindValidation, message, nil)
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// APIError represents the JSON error envelope returned to callers.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Message        string `json:"message"`
	Type           string `json:"type"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// NewAPIError creates a new API error.
func NewAPIError(message string, kind ErrorKind) *APIError {
	return &APIError{
		Error: ErrorDetail{
			Message: message,
			Type:    string(kind),
		},
	}
}

// WriteError writes an API error to the response writer.
func WriteError(w http.ResponseWriter, statusCode int, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(err)
}

// WriteKindError writes err using its kind and status. Untyped errors become
// a generic server error so internal details never leak.
func WriteKindError(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		WriteError(w, http.StatusInternalServerError, NewAPIError("internal server error", KindInternal))
		return
	}
	apiErr := NewAPIError(e.Message, e.Kind)
	apiErr.Error.UpstreamStatus = e.UpstreamStatus
	WriteError(w, e.Status(), apiErr)
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(message, KindValidation)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(message, "authentication_error")
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(message, KindNotFound)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(message, KindInternal)
}
