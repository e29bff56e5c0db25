package store

import (
	"time"

	"github.com/google/uuid"
)

// Device liveness states
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
	DeviceStatusError   = "error"
)

// BiometricDevice represents a face terminal registered to a tenant
type BiometricDevice struct {
	ID          uuid.UUID
	Serial      string
	Name        string
	Location    *string
	Status      string
	LastSeenAt  *time.Time
	ConnectedAt *time.Time
	Active      bool
	CreatedAt   time.Time
}

// Employee is the subset of the employee record the engine needs
type Employee struct {
	ID       uuid.UUID
	Code     string
	FullName string
	PhotoKey *string
}

// AttendanceLog is one immutable punch row. Direction starts null and is
// backfilled once by the punch-pair processor; nothing else is ever
// updated.
type AttendanceLog struct {
	ID            uuid.UUID
	DeviceID      uuid.UUID
	EmployeeID    *uuid.UUID
	EmployeeCode  string
	PersonID      string
	RecordID      string
	Confidence    float64
	VerifyStatus  int
	PunchedAt     time.Time
	TimeDefaulted bool
	Duplicate     bool
	Direction     *string
	PersonName    string
	RawPayload    []byte
	CreatedAt     time.Time
}

// Schedule type tags
const (
	ScheduleTypeFixed      = "fixed"
	ScheduleTypeShifting   = "shifting"
	ScheduleTypeFlexible   = "flexible"
	ScheduleTypeCompressed = "compressed"
)

// WorkSchedule is a schedule definition with its per-day windows and,
// for shifting schedules, its named shifts.
type WorkSchedule struct {
	ID           uuid.UUID
	Name         string
	Type         string
	GraceMinutes int
	Days         []WorkScheduleDay
	Shifts       []WorkScheduleShift
}

// WorkScheduleDay is the expected window for one weekday. Times are
// wall-clock "HH:MM" strings; an end earlier than the start means the
// shift crosses midnight.
type WorkScheduleDay struct {
	Weekday      time.Weekday
	StartTime    string
	EndTime      string
	BreakStart   *string
	BreakMinutes int
}

// WorkScheduleShift is a named shift of a shifting schedule
type WorkScheduleShift struct {
	Label     string
	StartTime string
	EndTime   string
}

// Device sync statuses
const (
	SyncStatusSent         = "sent"
	SyncStatusAcknowledged = "acknowledged"
	SyncStatusFailed       = "failed"
)

// DeviceSyncLog is one outbound command attempt. RequestPayload is
// sanitized before insert; embedded photo data never reaches the table.
type DeviceSyncLog struct {
	ID             uuid.UUID
	DeviceID       uuid.UUID
	EmployeeID     *uuid.UUID
	Operation      string
	MessageID      string
	Status         string
	RequestPayload []byte
	Error          *string
	SentAt         time.Time
	AckedAt        *time.Time
}

// Employee-device sync states
const (
	EmployeeSyncPending = "pending"
	EmployeeSyncSyncing = "syncing"
	EmployeeSyncSynced  = "synced"
	EmployeeSyncFailed  = "failed"
)
