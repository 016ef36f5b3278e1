package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// writeAppError maps err to its status class. Server-side failures are
// logged at error level; client errors only at debug.
func writeAppError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	statusCode := apperr.HTTPStatus(err)

	resp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: "Internal server error",
		Code:    statusCode,
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Kind = appErr.Kind
		resp.Message = appErr.Message
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", statusCode).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", statusCode).Msg("Request rejected")
	}

	writeJSON(w, statusCode, resp)
}
