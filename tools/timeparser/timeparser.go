package timeparser

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDeviceTimestamp attempts to parse a terminal timestamp with the
// formats seen across vendor firmware revisions.
func ParseDeviceTimestamp(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// Some firmware sends epoch seconds as a bare number
	if secs, err := strconv.ParseInt(dateStr, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	formats := []string{
		"2006-01-02 15:04:05", // YYYY-MM-DD HH:mm:ss
		"2006-01-02T15:04:05", // ISO without zone
		time.RFC3339,          // Standard RFC3339
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// SameWorkDate reports whether two instants fall on the same calendar date
// in the given location.
func SameWorkDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
