package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/workpulse-hris/attendance-worker/internal/devicecmd"
	"github.com/workpulse-hris/attendance-worker/internal/dtr"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/zap"
)

// Job topics the dispatcher understands
const (
	TopicSyncEmployee = "jobs/sync"
	TopicComputeDTR   = "jobs/dtr"
)

// SyncRequest asks the worker to push one employee to one device
type SyncRequest struct {
	Tenant       string `json:"tenant"`
	EmployeeCode string `json:"employeeCode"`
	DeviceSerial string `json:"deviceSerial"`
}

// DTRRequest asks the worker to compute one employee's daily time record
type DTRRequest struct {
	Tenant     string `json:"tenant"`
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Shift      string `json:"shift"`
}

// Dispatcher routes job messages from the scheduler and the HR backend to
// the device command service and the DTR batch service.
type Dispatcher struct {
	registry *tenant.Registry
	commands *devicecmd.Service
	dtr      *dtr.Service
	logger   *zap.Logger
}

// NewDispatcher creates a job dispatcher
func NewDispatcher(registry *tenant.Registry, commands *devicecmd.Service, dtrService *dtr.Service, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		commands: commands,
		dtr:      dtrService,
		logger:   logger,
	}
}

// Handle processes one job message. Unknown topics and malformed bodies
// are logged and absorbed; a job that fails against infrastructure
// returns an error so the queue redelivers it.
func (d *Dispatcher) Handle(ctx context.Context, topic string, body []byte) error {
	switch {
	case strings.HasSuffix(topic, TopicSyncEmployee):
		return d.handleSync(ctx, body)
	case strings.HasSuffix(topic, TopicComputeDTR):
		return d.handleDTR(ctx, body)
	default:
		d.logger.Warn("ignoring job with unknown topic", zap.String("topic", topic))
		return nil
	}
}

func (d *Dispatcher) handleSync(ctx context.Context, body []byte) error {
	var req SyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		d.logger.Warn("rejecting undecodable sync request", zap.Error(err))
		return nil
	}

	h, ok := d.acquireTenant(ctx, req.Tenant)
	if !ok {
		return nil
	}
	repo := store.NewRepository(h.Pool)

	employee, err := repo.FindEmployeeByCode(ctx, req.EmployeeCode)
	if err != nil {
		return fmt.Errorf("failed to load employee %s: %w", req.EmployeeCode, err)
	}
	if employee == nil {
		d.logger.Warn("sync request for unknown employee",
			zap.String("tenant", req.Tenant),
			zap.String("employee_code", req.EmployeeCode),
		)
		return nil
	}

	device, err := repo.FindActiveDeviceBySerial(ctx, req.DeviceSerial)
	if err != nil {
		return fmt.Errorf("failed to load device %s: %w", req.DeviceSerial, err)
	}
	if device == nil {
		d.logger.Warn("sync request for unknown device",
			zap.String("tenant", req.Tenant),
			zap.String("device_serial", req.DeviceSerial),
		)
		return nil
	}

	if _, err := d.commands.EditPerson(ctx, h, device, employee); err != nil {
		return fmt.Errorf("failed to push employee to device: %w", err)
	}
	return nil
}

func (d *Dispatcher) handleDTR(ctx context.Context, body []byte) error {
	var req DTRRequest
	if err := json.Unmarshal(body, &req); err != nil {
		d.logger.Warn("rejecting undecodable DTR request", zap.Error(err))
		return nil
	}

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		d.logger.Warn("rejecting DTR request with bad employee id",
			zap.String("employee_id", req.EmployeeID))
		return nil
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		d.logger.Warn("rejecting DTR request with bad date",
			zap.String("date", req.Date))
		return nil
	}

	h, ok := d.acquireTenant(ctx, req.Tenant)
	if !ok {
		return nil
	}

	summary, err := d.dtr.ComputeDaily(ctx, h, employeeID, date, req.Shift)
	if err != nil {
		return fmt.Errorf("failed to compute daily time record: %w", err)
	}

	d.logger.Info("daily time record ready",
		zap.String("tenant", req.Tenant),
		zap.String("employee_id", req.EmployeeID),
		zap.String("date", req.Date),
		zap.Int("worked_minutes", summary.WorkedMinutes),
		zap.Int("late_minutes", summary.LateMinutes),
		zap.Int("overtime_minutes", summary.OvertimeMinutes),
		zap.Int("night_diff_minutes", summary.NightDiffMinutes),
		zap.Bool("open_shift", summary.OpenShift),
	)
	return nil
}

func (d *Dispatcher) acquireTenant(ctx context.Context, code string) (tenant.Handle, bool) {
	tenants, err := d.registry.List(ctx)
	if err != nil {
		d.logger.Error("failed to list tenants", zap.Error(err))
		return tenant.Handle{}, false
	}
	for _, t := range tenants {
		if t.Code != code {
			continue
		}
		h, err := d.registry.Acquire(ctx, t)
		if err != nil {
			d.logger.Error("failed to open tenant database",
				zap.String("tenant", code), zap.Error(err))
			return tenant.Handle{}, false
		}
		return h, true
	}
	d.logger.Warn("job for unknown tenant", zap.String("tenant", code))
	return tenant.Handle{}, false
}
