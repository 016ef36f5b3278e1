package api

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/meeting"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// MeetingService is the meeting use case consumed by the handlers.
type MeetingService interface {
	Record(ctx context.Context, audio []byte, durationSeconds float64) (*meeting.RecordResult, error)
	List(ctx context.Context, skip, limit int) ([]storage.Meeting, error)
	Get(ctx context.Context, id string) (*storage.Meeting, error)
	Delete(ctx context.Context, id string) error
	UsageStatus(ctx context.Context) (*meeting.UsageStatus, error)
}

// MeetingListItem is the summary view returned by the list endpoint.
type MeetingListItem struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// MeetingHandler handles meeting-related API requests.
type MeetingHandler struct {
	service        MeetingService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewMeetingHandler creates a new meeting handler.
func NewMeetingHandler(service MeetingService, maxUploadBytes int64, logger zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("handler", "meetings").Logger(),
	}
}

// Record accepts a multipart upload with an "audio" file and a
// "duration_seconds" field.
func (h *MeetingHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio upload is too large")
			return
		}
		writeAppError(w, h.logger, apperr.Wrap(apperr.InvalidRequest, err, "invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	duration, err := strconv.ParseFloat(r.FormValue("duration_seconds"), 64)
	if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		writeAppError(w, h.logger, apperr.New(apperr.InvalidRequest, "duration_seconds must be a non-negative number"))
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeAppError(w, h.logger, apperr.Wrap(apperr.InvalidRequest, err, "audio file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeAppError(w, h.logger, apperr.Wrap(apperr.InvalidRequest, err, "failed to read audio file"))
		return
	}

	result, err := h.service.Record(r.Context(), audio, duration)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns meetings newest first.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	meetings, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	items := make([]MeetingListItem, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, MeetingListItem{
			ID:        m.ID,
			Title:     m.Title,
			Summary:   m.Summary,
			CreatedAt: m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// Get returns a single meeting by ID.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Delete deletes a meeting.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := meetingID(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func meetingID(r *http.Request) (string, error) {
	id := mux.Vars(r)["id"]
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.New(apperr.InvalidRequest, "meeting id must be a UUID")
	}
	return parsed.String(), nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, apperr.New(apperr.InvalidRequest, "%s must be a non-negative integer", name)
	}
	return value, nil
}
