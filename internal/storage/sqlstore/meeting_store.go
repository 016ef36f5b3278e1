package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
)

type meetingStore struct {
	store *Store
}

func (s *meetingStore) Create(ctx context.Context, meeting storage.Meeting) (*storage.Meeting, error) {
	storage.PrepareMeeting(&meeting, time.Now())

	_, err := s.store.db.ExecContext(ctx,
		s.store.rebind(`INSERT INTO meetings (id, title, full_transcript, summary, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		meeting.ID, nullString(meeting.Title), meeting.FullTranscript, meeting.Summary,
		toMicros(meeting.CreatedAt), toMicros(meeting.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert meeting: %w", err)
	}

	meeting.CreatedAt = fromMicros(toMicros(meeting.CreatedAt))
	meeting.UpdatedAt = fromMicros(toMicros(meeting.UpdatedAt))
	return &meeting, nil
}

func (s *meetingStore) List(ctx context.Context, skip, limit int) ([]storage.Meeting, error) {
	skip, limit = storage.ClampPage(skip, limit)

	rows, err := s.store.db.QueryContext(ctx,
		s.store.rebind(`SELECT id, title, full_transcript, summary, created_at, updated_at
			FROM meetings ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	meetings := make([]storage.Meeting, 0)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *meeting)
	}

	return meetings, rows.Err()
}

func (s *meetingStore) Get(ctx context.Context, id string) (*storage.Meeting, error) {
	row := s.store.db.QueryRowContext(ctx,
		s.store.rebind(`SELECT id, title, full_transcript, summary, created_at, updated_at
			FROM meetings WHERE id = ?`),
		id,
	)

	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return meeting, err
}

func (s *meetingStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.store.db.ExecContext(ctx, s.store.rebind(`DELETE FROM meetings WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete meeting: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row scanner) (*storage.Meeting, error) {
	var (
		meeting   storage.Meeting
		title     sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&meeting.ID, &title, &meeting.FullTranscript, &meeting.Summary, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan meeting: %w", err)
	}
	if title.Valid {
		meeting.Title = &title.String
	}
	meeting.CreatedAt = fromMicros(createdAt)
	meeting.UpdatedAt = fromMicros(updatedAt)
	return &meeting, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
