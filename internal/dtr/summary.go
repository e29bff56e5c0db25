package dtr

import (
	"time"
)

// Night differential window boundaries (22:00 through 06:00)
const (
	nightStartHour = 22
	nightEndHour   = 6
)

// Summary is one employee's computed daily time record
type Summary struct {
	Date             time.Time
	FirstIn          *time.Time
	LastOut          *time.Time
	WorkedMinutes    int
	LateMinutes      int
	UndertimeMinutes int
	OvertimeMinutes  int
	NightDiffMinutes int
	OpenShift        bool
}

// ComputeSummary derives the DTR figures from a paired punch set and the
// resolved schedule window. hasWindow=false (no schedule for the date)
// still yields worked and night-differential minutes; late, undertime and
// overtime need an expected window to measure against.
func ComputeSummary(date time.Time, result ProcessResult, window Window, hasWindow bool, graceMinutes int) Summary {
	s := Summary{
		Date:          date,
		WorkedMinutes: TotalWorkMinutes(result.Pairs),
	}

	if result.FirstIn != nil {
		t := result.FirstIn.At
		s.FirstIn = &t
	}
	if result.LastOut != nil {
		t := result.LastOut.At
		s.LastOut = &t
	}

	for _, p := range result.Pairs {
		if p.Out == nil {
			s.OpenShift = true
		}
		s.NightDiffMinutes += nightOverlapMinutes(p)
	}

	if !hasWindow {
		return s
	}

	grace := time.Duration(graceMinutes) * time.Minute
	if s.FirstIn != nil && s.FirstIn.After(window.Start.Add(grace)) {
		// Late counts from the scheduled start, not the grace limit
		s.LateMinutes = int(s.FirstIn.Sub(window.Start) / time.Minute)
	}

	if s.LastOut != nil {
		if s.LastOut.Before(window.End) {
			s.UndertimeMinutes = int(window.End.Sub(*s.LastOut) / time.Minute)
		} else {
			s.OvertimeMinutes = int(s.LastOut.Sub(window.End) / time.Minute)
		}
	}

	return s
}

// nightOverlapMinutes measures how much of a complete pair falls inside
// the 22:00-06:00 night differential window.
func nightOverlapMinutes(p Pair) int {
	if p.In == nil || p.Out == nil {
		return 0
	}

	total := 0
	// The pair can straddle up to two night windows: the one ending on
	// its first morning and the one starting on its last evening.
	day := time.Date(p.In.At.Year(), p.In.At.Month(), p.In.At.Day(), 0, 0, 0, 0, p.In.At.Location())
	for d := -1; d <= 1; d++ {
		start := day.AddDate(0, 0, d).Add(nightStartHour * time.Hour)
		end := day.AddDate(0, 0, d+1).Add(nightEndHour * time.Hour)
		total += overlapMinutes(p.In.At, p.Out.At, start, end)
	}
	return total
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}
