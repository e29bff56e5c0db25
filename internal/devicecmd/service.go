package devicecmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/workpulse-hris/attendance-worker/internal/mq"
	"github.com/workpulse-hris/attendance-worker/internal/observability"
	"github.com/workpulse-hris/attendance-worker/internal/photos"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/zap"
)

// OperatorEditPerson pushes an employee's biometric profile to a terminal
const OperatorEditPerson = "EditPerson"

// personInfo is the EditPerson command body
type personInfo struct {
	CustomID string `json:"customId"`
	Name     string `json:"name"`
	Pic      string `json:"pic,omitempty"`
}

// Publisher is the slice of the command publisher the service needs
type Publisher interface {
	PublishAndWaitForAck(ctx context.Context, topic, operator string, info json.RawMessage) (string, *mq.Ack, error)
}

// SyncStore is the slice of the tenant repository the service needs
type SyncStore interface {
	UpsertEmployeeDeviceSync(ctx context.Context, employeeID, deviceID uuid.UUID, status string, lastError *string) error
	InsertDeviceSyncLog(ctx context.Context, log *store.DeviceSyncLog) error
	MarkSyncAcknowledged(ctx context.Context, syncLogID uuid.UUID, ackedAt time.Time) error
	MarkSyncFailed(ctx context.Context, syncLogID uuid.UUID, reason string) error
}

// StoreFactory opens the sync store for one tenant handle
type StoreFactory func(h tenant.Handle) SyncStore

func defaultStoreFactory(h tenant.Handle) SyncStore {
	return store.NewRepository(h.Pool)
}

// Service builds outbound device commands and records their lifecycle.
// Transport is delegated to the publisher; the service owns payload
// construction, photo embedding, audit sanitization and sync bookkeeping.
type Service struct {
	publisher   Publisher
	photos      photos.Store
	topicPrefix string
	stores      StoreFactory
	logger      *zap.Logger
}

// NewService creates a device command service. photoStore may be nil when
// photo sync is disabled.
func NewService(publisher Publisher, photoStore photos.Store, topicPrefix string, logger *zap.Logger) *Service {
	return NewServiceWithStore(publisher, photoStore, topicPrefix, defaultStoreFactory, logger)
}

// NewServiceWithStore creates a service with a custom sync store factory
func NewServiceWithStore(publisher Publisher, photoStore photos.Store, topicPrefix string, stores StoreFactory, logger *zap.Logger) *Service {
	return &Service{
		publisher:   publisher,
		photos:      photoStore,
		topicPrefix: topicPrefix,
		stores:      stores,
		logger:      logger,
	}
}

// EditPerson pushes the employee's profile to the device and waits for
// the acknowledgment. The sync log row is written with status "sent"
// before the wait and transitioned to acknowledged or failed afterwards.
// A missing photo or a failed retrieval degrades to a photo-less payload.
func (s *Service) EditPerson(ctx context.Context, h tenant.Handle, device *store.BiometricDevice, employee *store.Employee) (*store.DeviceSyncLog, error) {
	repo := s.stores(h)
	logger := s.logger.With(
		zap.String("tenant", h.Tenant.Code),
		zap.String("device_serial", device.Serial),
		zap.String("employee_code", employee.Code),
	)

	if err := repo.UpsertEmployeeDeviceSync(ctx, employee.ID, device.ID, store.EmployeeSyncSyncing, nil); err != nil {
		return nil, fmt.Errorf("failed to mark sync in progress: %w", err)
	}

	info := personInfo{
		CustomID: employee.Code,
		Name:     employee.FullName,
	}

	picSize := 0
	if s.photos != nil && employee.PhotoKey != nil {
		data, err := s.photos.Get(ctx, *employee.PhotoKey)
		if err != nil {
			logger.Warn("photo retrieval failed, syncing without photo", zap.Error(err))
		} else {
			info.Pic = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
			picSize = len(data)
		}
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal person info: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", s.topicPrefix, device.Serial)
	sentAt := time.Now()

	messageID, ack, err := s.publisher.PublishAndWaitForAck(ctx, topic, OperatorEditPerson, infoJSON)
	if err != nil {
		// Publish never happened; record the failed attempt and surface
		// the transport error.
		failReason := err.Error()
		syncLog := s.newSyncLog(device, employee, messageID, info, picSize, sentAt)
		syncLog.Status = store.SyncStatusFailed
		syncLog.Error = &failReason
		if insertErr := repo.InsertDeviceSyncLog(ctx, syncLog); insertErr != nil {
			logger.Error("failed to record failed command", zap.Error(insertErr))
		}
		s.finishEmployeeSync(ctx, repo, employee, device, store.EmployeeSyncFailed, &failReason, logger)
		return syncLog, err
	}

	syncLog := s.newSyncLog(device, employee, messageID, info, picSize, sentAt)
	if err := repo.InsertDeviceSyncLog(ctx, syncLog); err != nil {
		return nil, fmt.Errorf("failed to insert device sync log: %w", err)
	}

	if ack == nil {
		observability.CommandAcks.WithLabelValues("timeout").Inc()
		reason := "acknowledgment timed out"
		if err := repo.MarkSyncFailed(ctx, syncLog.ID, reason); err != nil {
			logger.Error("failed to record ack timeout", zap.Error(err))
		}
		syncLog.Status = store.SyncStatusFailed
		syncLog.Error = &reason
		s.finishEmployeeSync(ctx, repo, employee, device, store.EmployeeSyncFailed, &reason, logger)
		return syncLog, nil
	}

	observability.CommandAcks.WithLabelValues("acknowledged").Inc()
	observability.AckRoundTrip.Observe(ack.ReceivedAt.Sub(sentAt).Seconds())

	if err := repo.MarkSyncAcknowledged(ctx, syncLog.ID, ack.ReceivedAt); err != nil {
		logger.Error("failed to record acknowledgment", zap.Error(err))
	}
	syncLog.Status = store.SyncStatusAcknowledged
	ackedAt := ack.ReceivedAt
	syncLog.AckedAt = &ackedAt
	s.finishEmployeeSync(ctx, repo, employee, device, store.EmployeeSyncSynced, nil, logger)

	logger.Info("employee profile pushed to device",
		zap.String("message_id", messageID),
		zap.Bool("with_photo", info.Pic != ""),
	)
	return syncLog, nil
}

func (s *Service) newSyncLog(device *store.BiometricDevice, employee *store.Employee, messageID string, info personInfo, picSize int, sentAt time.Time) *store.DeviceSyncLog {
	return &store.DeviceSyncLog{
		DeviceID:       device.ID,
		EmployeeID:     &employee.ID,
		Operation:      OperatorEditPerson,
		MessageID:      messageID,
		Status:         store.SyncStatusSent,
		RequestPayload: sanitizePayload(info, picSize),
		SentAt:         sentAt,
	}
}

func (s *Service) finishEmployeeSync(ctx context.Context, repo SyncStore, employee *store.Employee, device *store.BiometricDevice, status string, lastError *string, logger *zap.Logger) {
	if err := repo.UpsertEmployeeDeviceSync(ctx, employee.ID, device.ID, status, lastError); err != nil {
		logger.Error("failed to transition employee device sync", zap.Error(err))
	}
}

// sanitizePayload renders the audit copy of the command body, replacing
// embedded image data with a size placeholder so sync logs never hold
// binary blobs.
func sanitizePayload(info personInfo, picSize int) []byte {
	audit := info
	if audit.Pic != "" {
		audit.Pic = fmt.Sprintf("<pic:%d bytes>", picSize)
	}
	body, err := json.Marshal(audit)
	if err != nil {
		return []byte("{}")
	}
	return body
}
