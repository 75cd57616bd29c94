package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/switchnode/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeTypeMismatch = "type_mismatch"
	ErrCodeRejected     = "rejected"
	ErrCodeReadOnly     = "read_only"
	ErrCodeNotReady     = "not_ready"
	ErrCodeUnavailable  = "service_unavailable"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a device package error to its HTTP status.
// ErrReadOnly is checked before ErrRejected because it wraps it.
func writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, device.ErrTypeMismatch):
		writeError(w, http.StatusBadRequest, ErrCodeTypeMismatch, err.Error())
	case errors.Is(err, device.ErrReadOnly):
		writeError(w, http.StatusConflict, ErrCodeReadOnly, err.Error())
	case errors.Is(err, device.ErrRejected):
		writeError(w, http.StatusConflict, ErrCodeRejected, err.Error())
	case errors.Is(err, device.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotReady, err.Error())
	default:
		writeInternalError(w, "write failed")
	}
}
