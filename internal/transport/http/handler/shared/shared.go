// Package shared holds response helpers used by every handler package.
package shared

import (
	"encoding/json"
	"net/http"

	"github.com/mandalnilabja/drawgate/internal/types"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONError writes a JSON error response in the standard envelope.
func WriteJSONError(w http.ResponseWriter, message string, kind types.ErrorKind, status int) {
	types.WriteError(w, status, types.NewAPIError(message, kind))
}
