package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"textgen/internal/manager"
	"textgen/internal/textgen"
	"textgen/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsConversationNotFound(err):
		return http.StatusNotFound
	case textgen.IsInvalidPrompt(err):
		return http.StatusBadRequest
	case textgen.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
