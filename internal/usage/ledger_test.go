package usage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/goodtune/meetingstt/internal/storage/bolt"
	"github.com/rs/zerolog"
)

func newTestLedger(t *testing.T) (*Ledger, *FixedClock) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "usage.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := NewFixedClock(time.Date(2025, time.December, 15, 12, 0, 0, 0, time.UTC))
	ledger := NewLedger(store.Usage(), zerolog.Nop())
	ledger.SetClock(clock)
	return ledger, clock
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid month",
			now:       time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC),
			wantStart: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls into next year",
			now:       time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
			wantStart: time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "first instant of january",
			now:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non-UTC input uses UTC month",
			now:       time.Date(2025, time.July, 1, 5, 0, 0, 0, time.FixedZone("KST", 9*3600)),
			wantStart: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthWindow(tt.now)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("MonthWindow(%v) = [%v, %v), want [%v, %v)", tt.now, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestUsageHoursEmpty(t *testing.T) {
	ledger, clock := newTestLedger(t)

	hours, err := ledger.UsageHours(context.Background(), storage.ProviderAzureSpeech, clock.Now())
	if err != nil {
		t.Fatalf("UsageHours failed: %v", err)
	}
	if hours != 0 {
		t.Errorf("expected 0 hours, got %v", hours)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger, clock := newTestLedger(t)

	if err := ledger.Record(ctx, storage.ProviderAzureSpeech, 1800); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	hours, err := ledger.UsageHours(ctx, storage.ProviderAzureSpeech, clock.Now())
	if err != nil {
		t.Fatalf("UsageHours failed: %v", err)
	}
	if hours != 0.5 {
		t.Errorf("expected 0.5 hours, got %v", hours)
	}

	other, err := ledger.UsageHours(ctx, storage.ProviderWhisper, clock.Now())
	if err != nil {
		t.Fatalf("UsageHours failed: %v", err)
	}
	if other != 0 {
		t.Errorf("expected other provider to be unaffected, got %v", other)
	}

	// Idempotent without an intervening Record
	again, err := ledger.UsageHours(ctx, storage.ProviderAzureSpeech, clock.Now())
	if err != nil {
		t.Fatalf("UsageHours failed: %v", err)
	}
	if again != hours {
		t.Errorf("expected repeated query to return %v, got %v", hours, again)
	}
}

func TestMonthRollover(t *testing.T) {
	ctx := context.Background()
	ledger, clock := newTestLedger(t)

	clock.Set(time.Date(2025, time.November, 30, 23, 0, 0, 0, time.UTC))
	if err := ledger.Record(ctx, storage.ProviderAzureSpeech, 3600); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	clock.Set(time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC))
	if err := ledger.Record(ctx, storage.ProviderAzureSpeech, 720); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	clock.Set(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err := ledger.Record(ctx, storage.ProviderAzureSpeech, 1440); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	tests := []struct {
		now  time.Time
		want float64
	}{
		{time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC), 1.0},
		{time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC), 0.2},
		{time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), 0.4},
	}

	for _, tt := range tests {
		hours, err := ledger.UsageHours(ctx, storage.ProviderAzureSpeech, tt.now)
		if err != nil {
			t.Fatalf("UsageHours failed: %v", err)
		}
		if math.Abs(hours-tt.want) > 1e-9 {
			t.Errorf("UsageHours(%s) = %v, want %v", tt.now.Format("2006-01"), hours, tt.want)
		}
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	ledger, clock := newTestLedger(t)

	for i, d := range []float64{10, 20, 30} {
		clock.Set(time.Date(2025, time.December, 1+i, 0, 0, 0, 0, time.UTC))
		if err := ledger.Record(ctx, storage.ProviderAzureSpeech, d); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	events, err := ledger.History(ctx, storage.ProviderAzureSpeech, 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].DurationSeconds != 30 || events[1].DurationSeconds != 20 {
		t.Errorf("expected newest first, got %v then %v", events[0].DurationSeconds, events[1].DurationSeconds)
	}
}

func TestRecordRejectsInvalidDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
	}{
		{"negative", -1},
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t)
			ctx := context.Background()

			if err := ledger.Record(ctx, storage.ProviderAzureSpeech, tt.duration); err == nil {
				t.Fatalf("expected error for duration %v", tt.duration)
			}

			hours, err := ledger.UsageHours(ctx, storage.ProviderAzureSpeech, ledger.Now())
			if err != nil {
				t.Fatalf("UsageHours failed: %v", err)
			}
			if hours != 0 {
				t.Errorf("expected no usage recorded, got %v hours", hours)
			}
		})
	}
}

func TestFixedClockAdvance(t *testing.T) {
	start := time.Date(2025, time.January, 31, 23, 30, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	clock.Advance(time.Hour)
	if got := clock.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(time.Hour), got)
	}

	windowStart, _ := MonthWindow(clock.Now())
	if windowStart.Month() != time.February {
		t.Errorf("expected February window after advancing, got %v", windowStart)
	}
}
