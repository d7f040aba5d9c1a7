package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/command"
	"github.com/nerrad567/blink-sync-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeNotFound            = "not_found"
	ErrCodeUnauthorized        = "unauthorised"
	ErrCodeInternal            = "internal_error"
	ErrCodeUnsupported         = "unsupported"
	ErrCodeUpstream            = "upstream_error"
	ErrCodeUpstreamAuth        = "upstream_auth"
	ErrCodeUpstreamBusy        = "upstream_busy"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeTimeout             = "timeout"
	ErrCodeNotImplemented      = "not_configured"
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

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeFleetError maps domain and cloud failures onto HTTP statuses.
func (s *Server) writeFleetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, device.ErrNetworkNotFound), errors.Is(err, device.ErrCameraNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, cloud.ErrUnsupported):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnsupported, err.Error())
	case errors.Is(err, cloud.ErrAuth):
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamAuth, err.Error())
	case errors.Is(err, command.ErrBusyExhausted):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUpstreamBusy, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case cloud.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, err.Error())
	case cloud.StatusOf(err) != 0:
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err)
		writeInternalError(w, "internal server error")
	}
}
