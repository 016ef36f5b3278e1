package usage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/rs/zerolog"
)

// Ledger is the append-only record of speech-to-text usage.
type Ledger struct {
	store  storage.UsageStore
	clock  Clock
	logger zerolog.Logger
}

// NewLedger creates a ledger over the given usage store
func NewLedger(store storage.UsageStore, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		clock:  SystemClock{},
		logger: logger.With().Str("component", "usage-ledger").Logger(),
	}
}

// SetClock sets the clock used for event timestamps (for testing)
func (l *Ledger) SetClock(clock Clock) {
	l.clock = clock
}

// Now returns the ledger's notion of the current time in UTC.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().UTC()
}

// Record appends one usage event stamped with the current time.
func (l *Ledger) Record(ctx context.Context, provider storage.Provider, durationSeconds float64) error {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		return fmt.Errorf("invalid usage duration: %v", durationSeconds)
	}

	event, err := l.store.AppendEvent(ctx, storage.UsageEvent{
		Provider:        provider,
		DurationSeconds: durationSeconds,
		OccurredAt:      l.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	metrics.UsageSecondsRecorded.WithLabelValues(string(provider)).Add(durationSeconds)

	l.logger.Debug().
		Str("event_id", event.ID).
		Str("provider", string(provider)).
		Float64("duration_seconds", durationSeconds).
		Msg("Usage recorded")

	return nil
}

// UsageHours returns the hours consumed by provider in the UTC calendar
// month containing now. It is 0 when no events exist.
func (l *Ledger) UsageHours(ctx context.Context, provider storage.Provider, now time.Time) (float64, error) {
	start, end := MonthWindow(now)

	seconds, err := l.store.SumDuration(ctx, provider, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}

	return seconds / 3600.0, nil
}

// History returns the latest events for provider, newest first.
func (l *Ledger) History(ctx context.Context, provider storage.Provider, limit int) ([]storage.UsageEvent, error) {
	events, err := l.store.ListRecentEvents(ctx, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	return events, nil
}

// MonthWindow returns [start, end) of the UTC calendar month containing now.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if now.Month() == time.December {
		return start, time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return start, time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
