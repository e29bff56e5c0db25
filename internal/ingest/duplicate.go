package ingest

import (
	"fmt"
	"time"
)

// DuplicateDetector flags repeated scans of the same employee on the same
// device within a short window. Terminals re-read a face when the person
// lingers in front of the camera; the repeat is kept for audit but must
// not enter pairing.
type DuplicateDetector struct {
	window time.Duration
}

// NewDuplicateDetector creates a detector with the specified window
func NewDuplicateDetector(windowSeconds int) *DuplicateDetector {
	return &DuplicateDetector{
		window: time.Duration(windowSeconds) * time.Second,
	}
}

// Check reports whether a punch at punchedAt duplicates the employee's
// previous punch on the device. lastPunchAt is nil when the employee has
// no prior punch there.
func (d *DuplicateDetector) Check(punchedAt time.Time, lastPunchAt *time.Time) (bool, string) {
	if lastPunchAt == nil {
		return false, ""
	}

	diff := punchedAt.Sub(*lastPunchAt)
	if diff < 0 {
		diff = -diff
	}

	if diff <= d.window {
		return true, fmt.Sprintf("repeat scan %.0fs after previous punch (window %.0fs)",
			diff.Seconds(), d.window.Seconds())
	}

	return false, ""
}
