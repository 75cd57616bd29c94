package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// handleGetParamHistory returns recent changes of one parameter, newest
// first.
func (s *Server) handleGetParamHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is disabled")
		return
	}

	deviceName := chi.URLParam(r, "device")
	paramName := chi.URLParam(r, "param")
	if len(deviceName) > maxNameLen || len(paramName) > maxNameLen {
		writeBadRequest(w, "invalid name")
		return
	}
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.dispatcher.Node().FindParam(deviceName, paramName); err != nil {
		writeDeviceError(w, err)
		return
	}

	entries, err := s.history.GetHistory(r.Context(), deviceName, paramName, limit)
	if err != nil {
		s.logger.Error("history query failed", "device", deviceName, "param", paramName, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":  deviceName,
		"param":   paramName,
		"entries": entries,
		"count":   len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}
