package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
	"go.etcd.io/bbolt"
)

type meetingStore struct {
	db *bbolt.DB
}

func (s *meetingStore) Create(ctx context.Context, meeting storage.Meeting) (*storage.Meeting, error) {
	storage.PrepareMeeting(&meeting, time.Now())
	data, err := marshal(meeting)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketMeetings))
		idx := tx.Bucket([]byte(bucketMeetingsByCreate))
		if b == nil || idx == nil {
			return fmt.Errorf("meetings bucket missing")
		}
		if err := b.Put([]byte(meeting.ID), data); err != nil {
			return err
		}
		return idx.Put(timeKey(meeting.CreatedAt, []byte(meeting.ID)), []byte(meeting.ID))
	})
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (s *meetingStore) List(ctx context.Context, skip, limit int) ([]storage.Meeting, error) {
	skip, limit = storage.ClampPage(skip, limit)
	meetings := make([]storage.Meeting, 0)
	return meetings, s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketMeetings))
		idx := tx.Bucket([]byte(bucketMeetingsByCreate))
		if b == nil || idx == nil {
			return nil
		}
		c := idx.Cursor()
		seen := 0
		for k, id := c.Last(); k != nil && len(meetings) < limit; k, id = c.Prev() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if seen < skip {
				seen++
				continue
			}
			value := b.Get(id)
			if value == nil {
				continue
			}
			var meeting storage.Meeting
			if err := unmarshal(value, &meeting); err != nil {
				return err
			}
			meetings = append(meetings, meeting)
		}
		return nil
	})
}

func (s *meetingStore) Get(ctx context.Context, id string) (*storage.Meeting, error) {
	return getBucketValue[storage.Meeting](ctx, s.db, bucketMeetings, id)
}

func (s *meetingStore) Delete(ctx context.Context, id string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketMeetings))
		idx := tx.Bucket([]byte(bucketMeetingsByCreate))
		if b == nil || idx == nil {
			return nil
		}
		value := b.Get([]byte(id))
		if value == nil {
			return nil
		}
		var meeting storage.Meeting
		if err := unmarshal(value, &meeting); err != nil {
			return err
		}
		if err := idx.Delete(timeKey(meeting.CreatedAt, []byte(meeting.ID))); err != nil {
			return err
		}
		existed = true
		return b.Delete([]byte(id))
	})
	return existed, err
}
