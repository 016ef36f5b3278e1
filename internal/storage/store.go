package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Usage() UsageStore
	Meetings() MeetingStore
}

// UsageStore is the append-only ledger of speech-to-text usage events.
type UsageStore interface {
	// AppendEvent stores a new event and returns it with its ID assigned.
	AppendEvent(ctx context.Context, event UsageEvent) (*UsageEvent, error)
	// SumDuration returns the total duration_seconds of provider's events
	// with occurred_at in [start, end).
	SumDuration(ctx context.Context, provider Provider, start, end time.Time) (float64, error)
	// ListRecentEvents returns up to limit events for provider, newest first.
	ListRecentEvents(ctx context.Context, provider Provider, limit int) ([]UsageEvent, error)
}

// MeetingStore persists meeting records.
type MeetingStore interface {
	Create(ctx context.Context, meeting Meeting) (*Meeting, error)
	// List returns meetings ordered by created_at descending.
	List(ctx context.Context, skip, limit int) ([]Meeting, error)
	Get(ctx context.Context, id string) (*Meeting, error)
	// Delete removes a meeting and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}
