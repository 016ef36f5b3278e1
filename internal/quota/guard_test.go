package quota

import (
	"math"
	"testing"

	"github.com/goodtune/meetingstt/internal/apperr"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		requested float64
		quota     float64
		wantKind  apperr.Kind
	}{
		{"empty month", 0, 300, 5, ""},
		{"zero duration", 4.99, 0, 5, ""},
		{"exactly at quota", 4, 3600, 5, ""},
		{"one second over", 4, 3601, 5, apperr.QuotaExceeded},
		{"already over", 5.5, 0, 5, apperr.QuotaExceeded},
		{"zero quota rejects any audio", 0, 1, 0, apperr.QuotaExceeded},
		{"zero quota admits zero duration", 0, 0, 0, ""},
		{"under quota scenario", 4.9, 300, 5, ""},
		{"over quota scenario", 4.9 + 300.0/3600.0, 300, 5, apperr.QuotaExceeded},
		{"NaN duration", 0, math.NaN(), 5, apperr.InvalidRequest},
		{"infinite duration", 0, math.Inf(1), 5, apperr.InvalidRequest},
		{"negative duration", 4.9, -3600, 5, apperr.InvalidRequest},
		{"NaN usage", math.NaN(), 300, 5, apperr.QuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.current, tt.requested, tt.quota)
			if tt.wantKind != "" {
				if err == nil {
					t.Fatal("expected rejection")
				}
				if !apperr.IsKind(err, tt.wantKind) {
					t.Errorf("expected %s, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected admission, got %v", err)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(1.5, 5); got != 3.5 {
		t.Errorf("Remaining(1.5, 5) = %v", got)
	}
	if got := Remaining(6, 5); got != 0 {
		t.Errorf("Remaining(6, 5) = %v, want 0", got)
	}
}
