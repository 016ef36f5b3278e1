// Package meeting implements the record-meeting use case and meeting
// retrieval on top of the transcription and summarization clients.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/quota"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// NoSpeechTranscript replaces an empty transcript before it is stored.
const NoSpeechTranscript = "No speech was recognized."

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, durationSeconds float64) (string, error)
	QuotaHours() float64
}

// Summarizer turns a transcript into minutes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// UsageReader reports metered usage.
type UsageReader interface {
	Now() time.Time
	UsageHours(ctx context.Context, provider storage.Provider, now time.Time) (float64, error)
}

// RecordResult is the outcome of a recorded meeting
type RecordResult struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// UsageStatus describes quota consumption for the current month
type UsageStatus struct {
	Provider           storage.Provider `json:"provider"`
	UsedHoursThisMonth float64          `json:"used_hours_this_month"`
	QuotaHoursPerMonth float64          `json:"quota_hours_per_month"`
	RemainingHours     float64          `json:"remaining_hours"`
	NowUTC             time.Time        `json:"now_utc"`
}

// CacheConfig sizes the meeting detail cache
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// Service coordinates transcription, summarization and persistence.
type Service struct {
	meetings    storage.MeetingStore
	transcriber Transcriber
	summarizer  Summarizer
	usage       UsageReader
	cache       *expirable.LRU[string, storage.Meeting]
	logger      zerolog.Logger

	// cacheMu and cacheGen keep a Get that raced a Delete from refilling
	// the cache with the deleted meeting.
	cacheMu  sync.Mutex
	cacheGen uint64
}

// NewService creates a meeting service
func NewService(
	meetings storage.MeetingStore,
	transcriber Transcriber,
	summarizer Summarizer,
	usage UsageReader,
	cacheConfig CacheConfig,
	logger zerolog.Logger,
) *Service {
	if cacheConfig.Size <= 0 {
		cacheConfig.Size = DefaultCacheSize
	}
	if cacheConfig.TTL <= 0 {
		cacheConfig.TTL = DefaultCacheTTL
	}

	return &Service{
		meetings:    meetings,
		transcriber: transcriber,
		summarizer:  summarizer,
		usage:       usage,
		cache:       expirable.NewLRU[string, storage.Meeting](cacheConfig.Size, nil, cacheConfig.TTL),
		logger:      logger.With().Str("component", "meeting").Logger(),
	}
}

// Record transcribes audio, summarizes the transcript and stores the
// meeting. Nothing is stored unless both steps succeed.
func (s *Service) Record(ctx context.Context, audio []byte, durationSeconds float64) (*RecordResult, error) {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		return nil, apperr.New(apperr.InvalidRequest, "duration_seconds must be a non-negative number")
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, durationSeconds)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return nil, err
	}

	meeting, err := s.meetings.Create(ctx, storage.Meeting{
		FullTranscript: NormalizeTranscript(transcript),
		Summary:        summary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store meeting: %w", err)
	}

	metrics.MeetingsRecordedTotal.Inc()
	s.logger.Info().
		Str("meeting_id", meeting.ID).
		Float64("duration_seconds", durationSeconds).
		Msg("Meeting recorded")

	return &RecordResult{
		ID:         meeting.ID,
		Transcript: meeting.FullTranscript,
		Summary:    meeting.Summary,
	}, nil
}

// List returns meetings newest first. A non-positive limit means 20.
func (s *Service) List(ctx context.Context, skip, limit int) ([]storage.Meeting, error) {
	if skip < 0 {
		return nil, apperr.New(apperr.InvalidRequest, "skip must not be negative")
	}

	meetings, err := s.meetings.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// Get returns a meeting by id.
func (s *Service) Get(ctx context.Context, id string) (*storage.Meeting, error) {
	if cached, ok := s.cache.Get(id); ok {
		metrics.MeetingCacheHits.Inc()
		return &cached, nil
	}
	metrics.MeetingCacheMisses.Inc()

	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()

	meeting, err := s.meetings.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "meeting not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	s.cacheMu.Lock()
	if s.cacheGen == gen {
		s.cache.Add(id, *meeting)
	}
	s.cacheMu.Unlock()

	return meeting, nil
}

// Delete removes a meeting by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	existed, err := s.meetings.Delete(ctx, id)
	s.invalidate(id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	if !existed {
		return apperr.New(apperr.NotFound, "meeting not found")
	}

	s.logger.Info().Str("meeting_id", id).Msg("Meeting deleted")
	return nil
}

// invalidate drops id from the cache and fences out fills that started
// before the call.
func (s *Service) invalidate(id string) {
	s.cacheMu.Lock()
	s.cacheGen++
	s.cache.Remove(id)
	s.cacheMu.Unlock()
}

// UsageStatus reports the metered backend's usage for the current month.
func (s *Service) UsageStatus(ctx context.Context) (*UsageStatus, error) {
	now := s.usage.Now()

	used, err := s.usage.UsageHours(ctx, storage.ProviderAzureSpeech, now)
	if err != nil {
		return nil, err
	}

	quotaHours := s.transcriber.QuotaHours()
	return &UsageStatus{
		Provider:           storage.ProviderAzureSpeech,
		UsedHoursThisMonth: used,
		QuotaHoursPerMonth: quotaHours,
		RemainingHours:     quota.Remaining(used, quotaHours),
		NowUTC:             now.UTC(),
	}, nil
}

// NormalizeTranscript trims the transcript and substitutes a placeholder
// when nothing is left.
func NormalizeTranscript(transcript string) string {
	if trimmed := strings.TrimSpace(transcript); trimmed != "" {
		return trimmed
	}
	return NoSpeechTranscript
}
