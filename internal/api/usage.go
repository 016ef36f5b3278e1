package api

import (
	"context"
	"net/http"

	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/rs/zerolog"
)

// UsageHistory lists recorded usage events.
type UsageHistory interface {
	History(ctx context.Context, provider storage.Provider, limit int) ([]storage.UsageEvent, error)
}

// UsageHandler serves speech-to-text quota information.
type UsageHandler struct {
	service MeetingService
	history UsageHistory
	logger  zerolog.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(service MeetingService, history UsageHistory, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		history: history,
		logger:  logger.With().Str("handler", "usage").Logger(),
	}
}

// Status returns this month's usage against the quota.
func (h *UsageHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.UsageStatus(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// History returns the latest metered usage events, newest first.
func (h *UsageHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	events, err := h.history.History(r.Context(), storage.ProviderAzureSpeech, limit)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
