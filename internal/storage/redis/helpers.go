package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
)

// score converts a timestamp into a sorted-set score with microsecond
// resolution, which stays exact within float64 precision.
func score(t time.Time) int64 {
	return t.UnixMicro()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseUsageEvent converts a Redis hash to UsageEvent
func parseUsageEvent(data map[string]string) (*storage.UsageEvent, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	duration, err := strconv.ParseFloat(data["duration_seconds"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_seconds: %w", err)
	}

	occurredAt, err := time.Parse(time.RFC3339Nano, data["occurred_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
	}

	return &storage.UsageEvent{
		ID:              data["id"],
		Provider:        storage.Provider(data["provider"]),
		DurationSeconds: duration,
		OccurredAt:      occurredAt,
	}, nil
}

// parseMeeting converts a Redis hash to Meeting
func parseMeeting(data map[string]string) (*storage.Meeting, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	meeting := &storage.Meeting{
		ID:             data["id"],
		FullTranscript: data["full_transcript"],
		Summary:        data["summary"],
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
	if title, ok := data["title"]; ok {
		meeting.Title = &title
	}

	return meeting, nil
}
