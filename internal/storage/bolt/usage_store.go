package bolt

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
	"go.etcd.io/bbolt"
)

// usageStore keeps one nested bucket per provider under usage_events, keyed
// by occurred_at so window sums are a single cursor range scan.
type usageStore struct {
	db *bbolt.DB
}

func (s *usageStore) AppendEvent(ctx context.Context, event storage.UsageEvent) (*storage.UsageEvent, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root := tx.Bucket([]byte(bucketUsageEvents))
		if root == nil {
			return fmt.Errorf("usage events bucket missing")
		}
		b, err := root.CreateBucketIfNotExists([]byte(event.Provider))
		if err != nil {
			return fmt.Errorf("create provider bucket: %w", err)
		}
		seq, err := root.NextSequence()
		if err != nil {
			return err
		}
		event.ID = strconv.FormatUint(seq, 10)
		data, err := marshal(event)
		if err != nil {
			return err
		}
		return b.Put(timeKey(event.OccurredAt, seqSuffix(seq)), data)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *usageStore) SumDuration(ctx context.Context, provider storage.Provider, start, end time.Time) (float64, error) {
	var total float64
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := providerBucket(tx, provider)
		if b == nil {
			return nil
		}
		lower := timeKey(start, nil)
		upper := timeKey(end, nil)
		c := b.Cursor()
		for k, v := c.Seek(lower); k != nil && bytes.Compare(k, upper) < 0; k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var event storage.UsageEvent
			if err := unmarshal(v, &event); err != nil {
				return err
			}
			total += event.DurationSeconds
		}
		return nil
	})
	return total, err
}

func (s *usageStore) ListRecentEvents(ctx context.Context, provider storage.Provider, limit int) ([]storage.UsageEvent, error) {
	events := make([]storage.UsageEvent, 0)
	if limit <= 0 {
		return events, nil
	}
	return events, s.db.View(func(tx *bbolt.Tx) error {
		b := providerBucket(tx, provider)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var event storage.UsageEvent
			if err := unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
}

func providerBucket(tx *bbolt.Tx, provider storage.Provider) *bbolt.Bucket {
	root := tx.Bucket([]byte(bucketUsageEvents))
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(provider))
}
