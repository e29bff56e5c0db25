package dtr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction is an assigned punch direction
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
	// DirectionNone marks a punch the matcher has not classified yet
	DirectionNone Direction = ""
)

// Schedule kinds
const (
	KindFixed      = "fixed"
	KindShifting   = "shifting"
	KindFlexible   = "flexible"
	KindCompressed = "compressed"
)

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day '%s'", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in '%s'", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in '%s'", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// On composes the time of day with a calendar date, in the date's location
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

// DaySchedule is the expected window for one active weekday
type DaySchedule struct {
	Weekday      time.Weekday
	Start        TimeOfDay
	End          TimeOfDay
	BreakStart   *TimeOfDay
	BreakMinutes int
}

// Shift is one named shift of a shifting schedule
type Shift struct {
	Label string
	Start TimeOfDay
	End   TimeOfDay
}

// Schedule is a work schedule definition, tagged by kind. Fixed, flexible
// and compressed schedules resolve through their per-day windows; shifting
// schedules resolve through a named shift. The cross-midnight rule is
// shared by all kinds.
type Schedule struct {
	Kind         string
	GraceMinutes int
	Days         []DaySchedule
	Shifts       []Shift
}

// Window is a schedule expanded onto one concrete date
type Window struct {
	Start      time.Time
	End        time.Time
	BreakStart *time.Time
	BreakEnd   *time.Time
}

// ScheduleEvent is a concrete expected instant with its direction
type ScheduleEvent struct {
	At        time.Time
	Direction Direction
}

// dayFor returns the day window for the date's weekday
func (s Schedule) dayFor(date time.Time) (DaySchedule, bool) {
	for _, d := range s.Days {
		if d.Weekday == date.Weekday() {
			return d, true
		}
	}
	return DaySchedule{}, false
}

// shiftFor returns the named shift
func (s Schedule) shiftFor(label string) (Shift, bool) {
	for _, sh := range s.Shifts {
		if sh.Label == label {
			return sh, true
		}
	}
	return Shift{}, false
}

// rollover applies the cross-midnight rule to a composed (start, end)
// pair: an end at or before the start belongs to the next calendar day.
// Equal start and end means a full 24-hour shift, not a zero-length one.
func rollover(start, end time.Time) time.Time {
	if !end.After(start) {
		return end.AddDate(0, 0, 1)
	}
	return end
}

// ResolveWindow expands the schedule onto a calendar date. For shifting
// schedules shiftLabel selects the shift; other kinds ignore it. Returns
// ok=false when the date is not an active workday (or the shift label is
// unknown).
func (s Schedule) ResolveWindow(date time.Time, shiftLabel string) (Window, bool) {
	if s.Kind == KindShifting {
		sh, ok := s.shiftFor(shiftLabel)
		if !ok {
			return Window{}, false
		}
		start := sh.Start.On(date)
		end := rollover(start, sh.End.On(date))
		return Window{Start: start, End: end}, true
	}

	day, ok := s.dayFor(date)
	if !ok {
		return Window{}, false
	}

	start := day.Start.On(date)
	end := rollover(start, day.End.On(date))

	w := Window{Start: start, End: end}
	if day.BreakStart != nil && day.BreakMinutes > 0 {
		bs := day.BreakStart.On(date)
		// A break earlier than the shift start belongs past midnight
		if bs.Before(start) {
			bs = bs.AddDate(0, 0, 1)
		}
		be := bs.Add(time.Duration(day.BreakMinutes) * time.Minute)
		w.BreakStart = &bs
		w.BreakEnd = &be
	}

	return w, true
}

// ResolveStartTime composes the schedule's expected start with a date
func (s Schedule) ResolveStartTime(date time.Time, shiftLabel string) (time.Time, bool) {
	w, ok := s.ResolveWindow(date, shiftLabel)
	if !ok {
		return time.Time{}, false
	}
	return w.Start, true
}

// ResolveEndTime composes the schedule's expected end with a date,
// rolling past midnight when the shift crosses it.
func (s Schedule) ResolveEndTime(date time.Time, shiftLabel string) (time.Time, bool) {
	w, ok := s.ResolveWindow(date, shiftLabel)
	if !ok {
		return time.Time{}, false
	}
	return w.End, true
}

// Events expands the schedule for one date into the ordered expected
// sequence: start→in, break start→out, break end→in, end→out.
func (s Schedule) Events(date time.Time, shiftLabel string) []ScheduleEvent {
	w, ok := s.ResolveWindow(date, shiftLabel)
	if !ok {
		return nil
	}

	events := []ScheduleEvent{{At: w.Start, Direction: DirectionIn}}
	if w.BreakStart != nil && w.BreakEnd != nil {
		events = append(events,
			ScheduleEvent{At: *w.BreakStart, Direction: DirectionOut},
			ScheduleEvent{At: *w.BreakEnd, Direction: DirectionIn},
		)
	}
	events = append(events, ScheduleEvent{At: w.End, Direction: DirectionOut})

	return events
}
