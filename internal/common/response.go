package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error payload every endpoint renders, nested under an
// "error" envelope so clients can branch on one shape.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON encodes v with the given status. Encoding failures are dropped; the
// status line has already gone out by then.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders the canonical error envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{"error": ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// List renders a collection alongside its pagination metadata.
func List(w http.ResponseWriter, items any, p Pagination) {
	JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": p,
	})
}
