package ingest

import (
	"testing"
	"time"
)

func TestDuplicateDetector_NoPriorPunch(t *testing.T) {
	d := NewDuplicateDetector(60)

	dup, reason := d.Check(time.Now(), nil)
	if dup {
		t.Errorf("first punch can never be a duplicate, got reason %q", reason)
	}
}

func TestDuplicateDetector_WithinWindow(t *testing.T) {
	d := NewDuplicateDetector(60)

	last := time.Date(2025, 2, 13, 8, 0, 0, 0, time.UTC)
	punch := last.Add(12 * time.Second)

	dup, reason := d.Check(punch, &last)
	if !dup {
		t.Error("expected repeat scan within window to be flagged")
	}
	if reason == "" {
		t.Error("expected a reason for the flag")
	}
}

func TestDuplicateDetector_OutsideWindow(t *testing.T) {
	d := NewDuplicateDetector(60)

	last := time.Date(2025, 2, 13, 8, 0, 0, 0, time.UTC)
	punch := last.Add(5 * time.Minute)

	if dup, _ := d.Check(punch, &last); dup {
		t.Error("punch outside the window must not be flagged")
	}
}

func TestDuplicateDetector_OutOfOrderDelivery(t *testing.T) {
	d := NewDuplicateDetector(60)

	// The "previous" punch can arrive after the new one when the broker
	// redelivers; the window applies either way.
	last := time.Date(2025, 2, 13, 8, 0, 30, 0, time.UTC)
	punch := last.Add(-10 * time.Second)

	if dup, _ := d.Check(punch, &last); !dup {
		t.Error("expected flag for punches within the window in either order")
	}
}
