package dtr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/zap"
)

// Service computes daily time records for one employee/date shard. The
// computation itself is pure; the service only loads punches, backfills
// the directions the matcher assigned, and returns the summary. Shards
// are independent, so callers may run them in parallel.
type Service struct {
	tolerance time.Duration
	logger    *zap.Logger
}

// NewService creates a DTR batch service
func NewService(toleranceMinutes int, logger *zap.Logger) *Service {
	return &Service{
		tolerance: time.Duration(toleranceMinutes) * time.Minute,
		logger:    logger,
	}
}

// ComputeDaily builds the DTR summary for an employee on one calendar
// date within the given tenant.
func (s *Service) ComputeDaily(ctx context.Context, h tenant.Handle, employeeID uuid.UUID, date time.Time, shiftLabel string) (*Summary, error) {
	repo := store.NewRepository(h.Pool)

	row, err := repo.GetActiveScheduleForEmployee(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	var (
		schedule  Schedule
		window    Window
		hasWindow bool
		events    []ScheduleEvent
	)
	if row != nil {
		schedule, err = ScheduleFromStore(row)
		if err != nil {
			return nil, fmt.Errorf("failed to interpret schedule %s: %w", row.Name, err)
		}
		window, hasWindow = schedule.ResolveWindow(date, shiftLabel)
		events = schedule.Events(date, shiftLabel)
	}

	from, to := punchRange(date, window, hasWindow, s.tolerance)
	logs, err := repo.ListAttendanceLogs(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance logs: %w", err)
	}

	punches := make([]Punch, 0, len(logs))
	for _, l := range logs {
		p := Punch{ID: l.ID, At: l.PunchedAt}
		if l.Direction != nil {
			p.Direction = Direction(*l.Direction)
		}
		punches = append(punches, p)
	}

	matched := MatchToSchedule(punches, events, s.tolerance)

	// Persist directions the matcher assigned so reruns start classified
	assigned := make(map[uuid.UUID]Direction, len(matched.Punches))
	for _, p := range matched.Punches {
		assigned[p.ID] = p.Direction
	}
	for _, l := range logs {
		if l.Direction != nil {
			continue
		}
		dir, ok := assigned[l.ID]
		if !ok || dir == DirectionNone {
			continue
		}
		if err := repo.BackfillDirection(ctx, l.ID, string(dir)); err != nil {
			s.logger.Warn("failed to backfill punch direction",
				zap.String("log_id", l.ID.String()),
				zap.Error(err),
			)
		}
	}

	result := Process(matched.Punches)
	summary := ComputeSummary(date, result, window, hasWindow, schedule.GraceMinutes)

	s.logger.Debug("daily time record computed",
		zap.String("employee_id", employeeID.String()),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("punches", len(punches)),
		zap.Int("worked_minutes", summary.WorkedMinutes),
	)

	return &summary, nil
}

// punchRange bounds the day's punches. When a window is known the range
// follows it (a night shift's punches land past midnight); otherwise the
// calendar date is used.
func punchRange(date time.Time, window Window, hasWindow bool, tolerance time.Duration) (time.Time, time.Time) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if !hasWindow {
		return dayStart, dayStart.AddDate(0, 0, 1)
	}
	from := window.Start.Add(-tolerance)
	if dayStart.Before(from) {
		from = dayStart
	}
	to := window.End.Add(tolerance)
	if end := dayStart.AddDate(0, 0, 1); end.After(to) {
		to = end
	}
	return from, to
}

// ScheduleFromStore converts a persisted schedule row into the resolver's
// representation, parsing its wall-clock times.
func ScheduleFromStore(row *store.WorkSchedule) (Schedule, error) {
	s := Schedule{
		Kind:         row.Type,
		GraceMinutes: row.GraceMinutes,
	}

	for _, d := range row.Days {
		start, err := ParseTimeOfDay(d.StartTime)
		if err != nil {
			return Schedule{}, err
		}
		end, err := ParseTimeOfDay(d.EndTime)
		if err != nil {
			return Schedule{}, err
		}
		day := DaySchedule{
			Weekday:      d.Weekday,
			Start:        start,
			End:          end,
			BreakMinutes: d.BreakMinutes,
		}
		if d.BreakStart != nil {
			bs, err := ParseTimeOfDay(*d.BreakStart)
			if err != nil {
				return Schedule{}, err
			}
			day.BreakStart = &bs
		}
		s.Days = append(s.Days, day)
	}

	for _, sh := range row.Shifts {
		start, err := ParseTimeOfDay(sh.StartTime)
		if err != nil {
			return Schedule{}, err
		}
		end, err := ParseTimeOfDay(sh.EndTime)
		if err != nil {
			return Schedule{}, err
		}
		s.Shifts = append(s.Shifts, Shift{Label: sh.Label, Start: start, End: end})
	}

	return s, nil
}
