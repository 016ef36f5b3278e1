package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
)

type usageStore struct {
	store *Store
}

func (s *usageStore) AppendEvent(ctx context.Context, event storage.UsageEvent) (*storage.UsageEvent, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	var id int64
	err := s.store.db.QueryRowContext(ctx,
		s.store.rebind(`INSERT INTO stt_usage (provider, duration_seconds, occurred_at) VALUES (?, ?, ?) RETURNING id`),
		string(event.Provider), event.DurationSeconds, toMicros(event.OccurredAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert usage event: %w", err)
	}

	event.ID = strconv.FormatInt(id, 10)
	event.OccurredAt = fromMicros(toMicros(event.OccurredAt))
	return &event, nil
}

func (s *usageStore) SumDuration(ctx context.Context, provider storage.Provider, start, end time.Time) (float64, error) {
	var total float64
	err := s.store.db.QueryRowContext(ctx,
		s.store.rebind(`SELECT COALESCE(SUM(duration_seconds), 0) FROM stt_usage
			WHERE provider = ? AND occurred_at >= ? AND occurred_at < ?`),
		string(provider), toMicros(start), toMicros(end),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return total, nil
}

func (s *usageStore) ListRecentEvents(ctx context.Context, provider storage.Provider, limit int) ([]storage.UsageEvent, error) {
	events := make([]storage.UsageEvent, 0)
	if limit <= 0 {
		return events, nil
	}

	rows, err := s.store.db.QueryContext(ctx,
		s.store.rebind(`SELECT id, provider, duration_seconds, occurred_at FROM stt_usage
			WHERE provider = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`),
		string(provider), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			p          string
			duration   float64
			occurredAt int64
		)
		if err := rows.Scan(&id, &p, &duration, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		events = append(events, storage.UsageEvent{
			ID:              strconv.FormatInt(id, 10),
			Provider:        storage.Provider(p),
			DurationSeconds: duration,
			OccurredAt:      fromMicros(occurredAt),
		})
	}

	return events, rows.Err()
}
