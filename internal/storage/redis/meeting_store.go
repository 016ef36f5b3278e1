package redis

import (
	"context"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/redis/go-redis/v9"
)

type meetingStore struct {
	client       *redis.Client
	createScript *redis.Script
	deleteScript *redis.Script
}

// Create stores a meeting and indexes it by creation time
func (s *meetingStore) Create(ctx context.Context, meeting storage.Meeting) (*storage.Meeting, error) {
	storage.PrepareMeeting(&meeting, time.Now())

	title, hasTitle := "", "0"
	if meeting.Title != nil {
		title, hasTitle = *meeting.Title, "1"
	}

	keys := []string{meetingKey(meeting.ID), keyMeetingsByTime}
	args := []interface{}{
		meeting.ID,
		meeting.FullTranscript,
		meeting.Summary,
		meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
		meeting.UpdatedAt.UTC().Format(time.RFC3339Nano),
		score(meeting.CreatedAt),
		title,
		hasTitle,
	}

	if err := s.createScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// List returns meetings newest first
func (s *meetingStore) List(ctx context.Context, skip, limit int) ([]storage.Meeting, error) {
	skip, limit = storage.ClampPage(skip, limit)

	ids, err := s.client.ZRevRange(ctx, keyMeetingsByTime, int64(skip), int64(skip+limit-1)).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.Meeting{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, meetingKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	meetings := make([]storage.Meeting, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		meeting, err := parseMeeting(data)
		if err == nil {
			meetings = append(meetings, *meeting)
		}
	}

	return meetings, nil
}

// Get retrieves a meeting by ID
func (s *meetingStore) Get(ctx context.Context, id string) (*storage.Meeting, error) {
	data, err := s.client.HGetAll(ctx, meetingKey(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseMeeting(data)
}

// Delete removes a meeting by ID
func (s *meetingStore) Delete(ctx context.Context, id string) (bool, error) {
	keys := []string{meetingKey(id), keyMeetingsByTime}
	deleted, err := s.deleteScript.Run(ctx, s.client, keys, id).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
