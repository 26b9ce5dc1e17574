package blob

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when an operation receives an empty or otherwise
// unusable object key.
var ErrInvalidKey = errors.New("invalid blob key")

// Configuration key names reported by ConfigError. They match the storage
// section of the application config and the RETRACE_STORAGE_* environment
// variables.
const (
	modeKey       = "storage.mode"
	endpointKey   = "storage.endpoint"
	bucketKey     = "storage.bucket"
	serviceKeyKey = "storage.service_key"
)

// ConfigError reports missing or invalid storage configuration. It is never
// the result of a backend failure; callers can rely on the distinction to
// tell "not set up" apart from "set up but failing".
type ConfigError struct {
	// Keys lists every configuration key that is missing or invalid.
	Keys []string

	message string
}

func missingConfig(keys ...string) *ConfigError {
	return &ConfigError{
		Keys:    keys,
		message: "missing configuration: " + strings.Join(keys, ", "),
	}
}

func (e *ConfigError) Error() string {
	return e.message
}

// maxErrorBody bounds how much of a remote error response is kept on an
// APIError.
const maxErrorBody = 1000

// APIError represents a non-2xx response from the remote object store.
type APIError struct {
	StatusCode int
	Body       string
}

func newAPIError(statusCode int, body []byte) *APIError {
	return &APIError{StatusCode: statusCode, Body: truncateBody(body)}
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func (e *APIError) Error() string {
	return "remote storage error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
