// Package quota decides whether a transcription request fits inside the
// monthly free quota of the quota-limited speech backend.
package quota

import (
	"math"

	"github.com/goodtune/meetingstt/internal/apperr"
)

// Check admits a request when currentHours + requestedSeconds/3600 does not
// exceed quotaHours. Reaching the quota exactly is admitted. A requested
// duration that is not a finite non-negative number is rejected as invalid.
func Check(currentHours, requestedSeconds, quotaHours float64) error {
	if math.IsNaN(requestedSeconds) || math.IsInf(requestedSeconds, 0) || requestedSeconds < 0 {
		return apperr.New(apperr.InvalidRequest, "invalid requested duration: %v", requestedSeconds)
	}

	next := currentHours + requestedSeconds/3600.0
	if !(next <= quotaHours) {
		return apperr.New(apperr.QuotaExceeded,
			"monthly speech quota exceeded: %.4fh used + %.4fh requested > %.4fh allowed",
			currentHours, requestedSeconds/3600.0, quotaHours)
	}
	return nil
}

// Remaining returns the hours left in the quota, never negative.
func Remaining(usedHours, quotaHours float64) float64 {
	if r := quotaHours - usedHours; r > 0 {
		return r
	}
	return 0
}
