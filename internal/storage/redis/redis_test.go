package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/meetingstt/internal/config"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/goodtune/meetingstt/internal/storage/storagetest"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestUsageStore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	storagetest.TestUsageStore(t, store)
}

func TestMeetingStore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	storagetest.TestMeetingStore(t, store)
}

func TestUsageStore_FractionalDurations(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)

	for _, d := range []float64{1.25, 2.5} {
		if _, err := store.Usage().AppendEvent(ctx, storage.UsageEvent{
			Provider:        storage.ProviderAzureSpeech,
			DurationSeconds: d,
			OccurredAt:      now,
		}); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	total, err := store.Usage().SumDuration(ctx, storage.ProviderAzureSpeech, now, now.Add(time.Second))
	if err != nil {
		t.Fatalf("SumDuration failed: %v", err)
	}
	if total != 3.75 {
		t.Errorf("Expected fractional total 3.75, got %v", total)
	}
}

func TestMeetingStore_TitleRoundTrip(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	title := "Weekly sync"

	created, err := store.Meetings().Create(ctx, storage.Meeting{
		Title:          &title,
		FullTranscript: "hello",
		Summary:        "greeting",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got := mr.HGet(meetingKey(created.ID), "title"); got != title {
		t.Errorf("Expected stored title %q, got %q", title, got)
	}

	fetched, err := store.Meetings().Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Title == nil || *fetched.Title != title {
		t.Errorf("Expected title %q, got %v", title, fetched.Title)
	}
}

func TestOpen_InvalidTimeout(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := Open(config.RedisConfig{
		Host:         mr.Addr(),
		DialTimeout:  "soon",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	})
	if err == nil {
		t.Fatal("Expected error for invalid dial_timeout")
	}
}
