// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
)

// TestUsageStore exercises window sums, ordering and ID assignment.
func TestUsageStore(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	usage := store.Usage()

	decStart := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	janStart := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	events := []storage.UsageEvent{
		{Provider: storage.ProviderAzureSpeech, DurationSeconds: 100, OccurredAt: time.Date(2024, time.November, 30, 23, 59, 59, 0, time.UTC)},
		{Provider: storage.ProviderAzureSpeech, DurationSeconds: 200, OccurredAt: decStart},
		{Provider: storage.ProviderAzureSpeech, DurationSeconds: 300, OccurredAt: time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)},
		{Provider: storage.ProviderAzureSpeech, DurationSeconds: 400, OccurredAt: janStart},
		{Provider: storage.ProviderWhisper, DurationSeconds: 900, OccurredAt: time.Date(2024, time.December, 15, 12, 0, 0, 0, time.UTC)},
	}

	ids := make(map[string]bool)
	for _, event := range events {
		stored, err := usage.AppendEvent(ctx, event)
		if err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
		if stored.ID == "" {
			t.Fatal("expected AppendEvent to assign an ID")
		}
		if ids[stored.ID] {
			t.Fatalf("duplicate event ID %s", stored.ID)
		}
		ids[stored.ID] = true
	}

	total, err := usage.SumDuration(ctx, storage.ProviderAzureSpeech, decStart, janStart)
	if err != nil {
		t.Fatalf("SumDuration failed: %v", err)
	}
	if total != 500 {
		t.Errorf("Expected December azure_speech total 500, got %v", total)
	}

	total, err = usage.SumDuration(ctx, storage.ProviderWhisper, decStart, janStart)
	if err != nil {
		t.Fatalf("SumDuration failed: %v", err)
	}
	if total != 900 {
		t.Errorf("Expected December whisper total 900, got %v", total)
	}

	empty, err := usage.SumDuration(ctx, storage.ProviderAzureSpeech,
		time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SumDuration on empty window failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("Expected 0 for empty window, got %v", empty)
	}

	recent, err := usage.ListRecentEvents(ctx, storage.ProviderAzureSpeech, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent events, got %d", len(recent))
	}
	if recent[0].DurationSeconds != 400 || recent[1].DurationSeconds != 300 {
		t.Errorf("Expected newest first (400, 300), got (%v, %v)", recent[0].DurationSeconds, recent[1].DurationSeconds)
	}
	if recent[0].Provider != storage.ProviderAzureSpeech {
		t.Errorf("Expected provider azure_speech, got %s", recent[0].Provider)
	}
	if !recent[0].OccurredAt.Equal(janStart) {
		t.Errorf("Expected occurred_at %v, got %v", janStart, recent[0].OccurredAt)
	}

	none, err := usage.ListRecentEvents(ctx, storage.Provider("unknown"), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents for unknown provider failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no events for unknown provider, got %d", len(none))
	}
}

// TestMeetingStore exercises create, ordered listing, lookup and delete.
func TestMeetingStore(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	meetings := store.Meetings()

	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	var created []*storage.Meeting
	for i, transcript := range []string{"first", "second", "third"} {
		m, err := meetings.Create(ctx, storage.Meeting{
			FullTranscript: transcript,
			Summary:        "summary " + transcript,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if m.ID == "" {
			t.Fatal("expected Create to assign an ID")
		}
		if m.UpdatedAt.IsZero() {
			t.Error("expected Create to set UpdatedAt")
		}
		created = append(created, m)
	}

	all, err := meetings.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 meetings, got %d", len(all))
	}
	if all[0].FullTranscript != "third" || all[2].FullTranscript != "first" {
		t.Errorf("Expected newest first, got %q ... %q", all[0].FullTranscript, all[2].FullTranscript)
	}

	page, err := meetings.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List page failed: %v", err)
	}
	if len(page) != 1 || page[0].FullTranscript != "second" {
		t.Errorf("Expected page [second], got %+v", page)
	}

	got, err := meetings.Get(ctx, created[1].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Summary != "summary second" {
		t.Errorf("Expected summary %q, got %q", "summary second", got.Summary)
	}
	if got.Title != nil {
		t.Errorf("Expected nil title, got %q", *got.Title)
	}

	if _, err := meetings.Get(ctx, "does-not-exist"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	existed, err := meetings.Delete(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !existed {
		t.Error("Expected Delete to report an existing record")
	}

	existed, err = meetings.Delete(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if existed {
		t.Error("Expected second Delete to report a missing record")
	}

	remaining, err := meetings.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("Expected 2 meetings after delete, got %d", len(remaining))
	}
}
