package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles database operations against one tenant's database.
// Construct one per tenant handle; it holds no cross-tenant state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository over a tenant pool
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveDeviceBySerial looks up an active device by its serial.
// A miss is not an error: it returns (nil, nil).
func (r *Repository) FindActiveDeviceBySerial(ctx context.Context, serial string) (*BiometricDevice, error) {
	query := `
		SELECT id, serial, name, location, status, last_seen_at, connected_at, active, created_at
		FROM biometric_devices
		WHERE serial = $1 AND active = true
	`

	var d BiometricDevice
	err := r.pool.QueryRow(ctx, query, serial).Scan(
		&d.ID,
		&d.Serial,
		&d.Name,
		&d.Location,
		&d.Status,
		&d.LastSeenAt,
		&d.ConnectedAt,
		&d.Active,
		&d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return &d, nil
}

// MarkDeviceOnline sets the device online and refreshes last_seen_at.
// connected_at is stamped only the first time the device is seen.
func (r *Repository) MarkDeviceOnline(ctx context.Context, deviceID uuid.UUID, seenAt time.Time) error {
	query := `
		UPDATE biometric_devices
		SET status = $1,
		    last_seen_at = $2,
		    connected_at = COALESCE(connected_at, $2)
		WHERE id = $3
	`

	_, err := r.pool.Exec(ctx, query, DeviceStatusOnline, seenAt, deviceID)
	if err != nil {
		return fmt.Errorf("failed to mark device online: %w", err)
	}
	return nil
}

// FindEmployeeByCode looks up an employee by external code. A miss
// returns (nil, nil).
func (r *Repository) FindEmployeeByCode(ctx context.Context, code string) (*Employee, error) {
	query := `
		SELECT id, code, full_name, photo_key
		FROM employees
		WHERE code = $1 AND deleted_at IS NULL
	`

	var e Employee
	err := r.pool.QueryRow(ctx, query, code).Scan(&e.ID, &e.Code, &e.FullName, &e.PhotoKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}

	return &e, nil
}

// InsertAttendanceLog persists one punch row
func (r *Repository) InsertAttendanceLog(ctx context.Context, log *AttendanceLog) error {
	query := `
		INSERT INTO attendance_logs (
			device_id, employee_id, employee_code, person_id, record_id,
			confidence, verify_status, punched_at, time_defaulted, duplicate,
			direction, person_name, raw_payload, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		log.DeviceID,
		log.EmployeeID,
		log.EmployeeCode,
		log.PersonID,
		log.RecordID,
		log.Confidence,
		log.VerifyStatus,
		log.PunchedAt,
		log.TimeDefaulted,
		log.Duplicate,
		log.Direction,
		log.PersonName,
		log.RawPayload,
		now,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to insert attendance log: %w", err)
	}
	log.CreatedAt = now

	return nil
}

// LastPunchAt returns the most recent punch instant for an employee code
// on a device, or nil when the employee has no punches there yet.
func (r *Repository) LastPunchAt(ctx context.Context, deviceID uuid.UUID, employeeCode string) (*time.Time, error) {
	query := `
		SELECT punched_at
		FROM attendance_logs
		WHERE device_id = $1 AND employee_code = $2 AND duplicate = false
		ORDER BY punched_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.pool.QueryRow(ctx, query, deviceID, employeeCode).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last punch: %w", err)
	}
	return &at, nil
}

// ListAttendanceLogs returns an employee's non-duplicate punches within
// [from, to), ordered chronologically.
func (r *Repository) ListAttendanceLogs(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]AttendanceLog, error) {
	query := `
		SELECT id, device_id, employee_id, employee_code, person_id, record_id,
		       confidence, verify_status, punched_at, time_defaulted, duplicate,
		       direction, person_name, raw_payload, created_at
		FROM attendance_logs
		WHERE employee_id = $1 AND punched_at >= $2 AND punched_at < $3 AND duplicate = false
		ORDER BY punched_at
	`

	rows, err := r.pool.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance logs: %w", err)
	}
	defer rows.Close()

	var logs []AttendanceLog
	for rows.Next() {
		var l AttendanceLog
		if err := rows.Scan(
			&l.ID,
			&l.DeviceID,
			&l.EmployeeID,
			&l.EmployeeCode,
			&l.PersonID,
			&l.RecordID,
			&l.Confidence,
			&l.VerifyStatus,
			&l.PunchedAt,
			&l.TimeDefaulted,
			&l.Duplicate,
			&l.Direction,
			&l.PersonName,
			&l.RawPayload,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return logs, nil
}

// BackfillDirection assigns a direction to a punch row. This is the only
// mutation attendance_logs ever sees after insert.
func (r *Repository) BackfillDirection(ctx context.Context, logID uuid.UUID, direction string) error {
	query := `
		UPDATE attendance_logs
		SET direction = $1
		WHERE id = $2 AND direction IS NULL
	`

	_, err := r.pool.Exec(ctx, query, direction, logID)
	if err != nil {
		return fmt.Errorf("failed to backfill direction: %w", err)
	}
	return nil
}

// GetActiveScheduleForEmployee loads the employee's assigned schedule with
// its per-day windows and shifts. A missing assignment returns (nil, nil).
func (r *Repository) GetActiveScheduleForEmployee(ctx context.Context, employeeID uuid.UUID, onDate time.Time) (*WorkSchedule, error) {
	query := `
		SELECT ws.id, ws.name, ws.type, ws.grace_minutes
		FROM work_schedules ws
		JOIN employee_schedule_assignments esa ON esa.work_schedule_id = ws.id
		WHERE esa.employee_id = $1
		  AND esa.start_date <= $2
		  AND (esa.end_date IS NULL OR esa.end_date >= $2)
	`

	var ws WorkSchedule
	err := r.pool.QueryRow(ctx, query, employeeID, onDate).Scan(&ws.ID, &ws.Name, &ws.Type, &ws.GraceMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}

	dayQuery := `
		SELECT day_of_week, start_time, end_time, break_start, break_minutes
		FROM work_schedule_days
		WHERE work_schedule_id = $1
		ORDER BY day_of_week
	`

	rows, err := r.pool.Query(ctx, dayQuery, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d WorkScheduleDay
		var weekday int
		if err := rows.Scan(&weekday, &d.StartTime, &d.EndTime, &d.BreakStart, &d.BreakMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan schedule day: %w", err)
		}
		d.Weekday = time.Weekday(weekday)
		ws.Days = append(ws.Days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if ws.Type == ScheduleTypeShifting {
		shiftQuery := `
			SELECT label, start_time, end_time
			FROM work_schedule_shifts
			WHERE work_schedule_id = $1
			ORDER BY label
		`

		shiftRows, err := r.pool.Query(ctx, shiftQuery, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query shifts: %w", err)
		}
		defer shiftRows.Close()

		for shiftRows.Next() {
			var s WorkScheduleShift
			if err := shiftRows.Scan(&s.Label, &s.StartTime, &s.EndTime); err != nil {
				return nil, fmt.Errorf("failed to scan shift: %w", err)
			}
			ws.Shifts = append(ws.Shifts, s)
		}
		if err := shiftRows.Err(); err != nil {
			return nil, fmt.Errorf("rows iteration error: %w", err)
		}
	}

	return &ws, nil
}

// InsertDeviceSyncLog persists one outbound command attempt
func (r *Repository) InsertDeviceSyncLog(ctx context.Context, log *DeviceSyncLog) error {
	query := `
		INSERT INTO device_sync_logs (
			device_id, employee_id, operation, message_id, status,
			request_payload, error, sent_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		log.DeviceID,
		log.EmployeeID,
		log.Operation,
		log.MessageID,
		log.Status,
		log.RequestPayload,
		log.Error,
		log.SentAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to insert device sync log: %w", err)
	}

	return nil
}

// MarkSyncAcknowledged records a received acknowledgment
func (r *Repository) MarkSyncAcknowledged(ctx context.Context, syncLogID uuid.UUID, ackedAt time.Time) error {
	query := `
		UPDATE device_sync_logs
		SET status = $1, acked_at = $2
		WHERE id = $3
	`

	_, err := r.pool.Exec(ctx, query, SyncStatusAcknowledged, ackedAt, syncLogID)
	if err != nil {
		return fmt.Errorf("failed to mark sync acknowledged: %w", err)
	}
	return nil
}

// MarkSyncFailed records an ack timeout or publish failure
func (r *Repository) MarkSyncFailed(ctx context.Context, syncLogID uuid.UUID, reason string) error {
	query := `
		UPDATE device_sync_logs
		SET status = $1, error = $2
		WHERE id = $3
	`

	_, err := r.pool.Exec(ctx, query, SyncStatusFailed, reason, syncLogID)
	if err != nil {
		return fmt.Errorf("failed to mark sync failed: %w", err)
	}
	return nil
}

// UpsertEmployeeDeviceSync transitions the per (employee, device) sync
// row, creating it on first touch. One row per pair, never duplicated.
func (r *Repository) UpsertEmployeeDeviceSync(ctx context.Context, employeeID, deviceID uuid.UUID, status string, lastError *string) error {
	query := `
		INSERT INTO employee_device_syncs (employee_id, device_id, status, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (employee_id, device_id)
		DO UPDATE SET status = EXCLUDED.status,
		              last_error = EXCLUDED.last_error,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, employeeID, deviceID, status, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert employee device sync: %w", err)
	}
	return nil
}
