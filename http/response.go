package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/retracehq/retrace"
)

// ErrorBody carries the machine-readable code and human-readable message
// of one error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every error returns as.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorBody{Code: code, Message: message},
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, retrace.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	if errors.Is(err, retrace.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	if errors.Is(err, retrace.ErrUnauthorized) {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	if errors.Is(err, retrace.ErrUnavailable) {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	// Default internal error
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
