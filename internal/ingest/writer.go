package ingest

import (
	"context"
	"time"

	"github.com/workpulse-hris/attendance-worker/internal/logging"
	"github.com/workpulse-hris/attendance-worker/internal/observability"
	"github.com/workpulse-hris/attendance-worker/internal/parser"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/zap"
)

// Writer persists resolved attendance events. One event is recorded once
// per tenant owning the device serial, so a serial shared across tenants
// loses nothing on either side.
type Writer struct {
	resolver *tenant.Resolver
	detector *DuplicateDetector
	logger   *zap.Logger
}

// NewWriter creates an attendance log writer
func NewWriter(resolver *tenant.Resolver, detector *DuplicateDetector, logger *zap.Logger) *Writer {
	return &Writer{resolver: resolver, detector: detector, logger: logger}
}

// Write resolves the event's device across tenants and writes one
// attendance log per owning tenant. Returns false when no tenant owns the
// serial or every write failed; a malformed employee code is a logged
// miss, never a failure, and the row is kept with a null employee.
func (w *Writer) Write(ctx context.Context, event *parser.AttendanceEvent) bool {
	matches := w.resolver.ResolveAll(ctx, event.DeviceSerial)
	if len(matches) == 0 {
		observability.UnknownDevices.Inc()
		w.logger.Warn("discarding event from unknown device",
			zap.String("device_serial", event.DeviceSerial),
			zap.String("employee_code", event.EmployeeCode),
		)
		return false
	}

	wrote := false
	for _, m := range matches {
		if w.writeOne(ctx, m, event) {
			wrote = true
		}
	}
	return wrote
}

func (w *Writer) writeOne(ctx context.Context, m tenant.Match, event *parser.AttendanceEvent) bool {
	logger := logging.WithDevice(logging.WithTenant(w.logger, m.Handle.Tenant.Code), event.DeviceSerial)
	repo := store.NewRepository(m.Handle.Pool)

	if err := repo.MarkDeviceOnline(ctx, m.Device.ID, time.Now()); err != nil {
		logger.Warn("failed to refresh device liveness", zap.Error(err))
	}

	log := &store.AttendanceLog{
		DeviceID:      m.Device.ID,
		EmployeeCode:  event.EmployeeCode,
		PersonID:      event.PersonID,
		RecordID:      event.RecordID,
		Confidence:    event.Confidence,
		VerifyStatus:  event.VerifyStatus,
		PunchedAt:     event.Timestamp,
		TimeDefaulted: event.TimeDefaulted,
		PersonName:    event.PersonName,
		RawPayload:    event.RawPayload,
	}

	if event.Direction != parser.DirectionNone {
		dir := string(event.Direction)
		log.Direction = &dir
	}

	employee, err := repo.FindEmployeeByCode(ctx, event.EmployeeCode)
	if err != nil {
		logger.Warn("employee lookup failed, keeping punch unmatched", zap.Error(err))
	} else if employee == nil {
		logger.Warn("no employee with code, keeping punch unmatched",
			zap.String("employee_code", event.EmployeeCode))
	} else {
		log.EmployeeID = &employee.ID
	}

	lastAt, err := repo.LastPunchAt(ctx, m.Device.ID, event.EmployeeCode)
	if err != nil {
		logger.Warn("failed to load previous punch for repeat-scan check", zap.Error(err))
	} else if dup, reason := w.detector.Check(event.Timestamp, lastAt); dup {
		log.Duplicate = true
		observability.PunchesDuplicate.WithLabelValues(m.Handle.Tenant.Code).Inc()
		logger.Info("punch flagged as repeat scan", zap.String("reason", reason))
	}

	if err := repo.InsertAttendanceLog(ctx, log); err != nil {
		logger.Error("failed to insert attendance log", zap.Error(err))
		return false
	}

	observability.PunchesLogged.WithLabelValues(m.Handle.Tenant.Code).Inc()
	logger.Info("attendance log written",
		zap.String("employee_code", event.EmployeeCode),
		zap.Time("punched_at", event.Timestamp),
		zap.Bool("time_defaulted", event.TimeDefaulted),
	)
	return true
}
