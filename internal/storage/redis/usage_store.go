package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/redis/go-redis/v9"
)

type usageStore struct {
	client       *redis.Client
	appendScript *redis.Script
	sumScript    *redis.Script
}

// AppendEvent assigns a sequence ID and writes the event with its indexes
func (s *usageStore) AppendEvent(ctx context.Context, event storage.UsageEvent) (*storage.UsageEvent, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	seq, err := s.client.Incr(ctx, keyUsageSeq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate usage event id: %w", err)
	}
	event.ID = strconv.FormatInt(seq, 10)

	keys := []string{
		usageEventKey(event.ID),
		usageWindowKey(event.Provider),
		usageDurationsKey(event.Provider),
	}
	args := []interface{}{
		event.ID,
		string(event.Provider),
		formatFloat(event.DurationSeconds),
		event.OccurredAt.UTC().Format(time.RFC3339Nano),
		score(event.OccurredAt),
	}

	if err := s.appendScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return nil, err
	}
	return &event, nil
}

// SumDuration totals durations inside [start, end) server-side
func (s *usageStore) SumDuration(ctx context.Context, provider storage.Provider, start, end time.Time) (float64, error) {
	keys := []string{usageWindowKey(provider), usageDurationsKey(provider)}
	result, err := s.sumScript.Run(ctx, s.client, keys, score(start), score(end)).Text()
	if err != nil {
		return 0, err
	}

	total, err := strconv.ParseFloat(result, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse usage total %q: %w", result, err)
	}
	return total, nil
}

// ListRecentEvents returns the newest events for a provider
func (s *usageStore) ListRecentEvents(ctx context.Context, provider storage.Provider, limit int) ([]storage.UsageEvent, error) {
	if limit <= 0 {
		return []storage.UsageEvent{}, nil
	}

	ids, err := s.client.ZRevRange(ctx, usageWindowKey(provider), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.UsageEvent{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, usageEventKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	events := make([]storage.UsageEvent, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		event, err := parseUsageEvent(data)
		if err == nil {
			events = append(events, *event)
		}
	}

	return events, nil
}
