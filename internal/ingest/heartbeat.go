package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workpulse-hris/attendance-worker/internal/observability"
	"github.com/workpulse-hris/attendance-worker/internal/store"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/zap"
)

// HeartbeatProcessor applies device keep-alive messages: status online,
// last-seen refreshed, connection-start stamped on first contact.
type HeartbeatProcessor struct {
	resolver *tenant.Resolver
	logger   *zap.Logger
}

// NewHeartbeatProcessor creates a heartbeat processor
func NewHeartbeatProcessor(resolver *tenant.Resolver, logger *zap.Logger) *HeartbeatProcessor {
	return &HeartbeatProcessor{resolver: resolver, logger: logger}
}

// heartbeatPayload covers the field shapes different firmware versions
// use for the device serial, nested or top-level.
type heartbeatPayload struct {
	FacesluiceID json.Number `json:"facesluiceId"`
	DeviceID     json.Number `json:"deviceId"`
	Info         struct {
		FacesluiceID json.Number `json:"facesluiceId"`
		DeviceID     json.Number `json:"deviceId"`
	} `json:"info"`
}

// DeviceSerialFromHeartbeat extracts the device serial from a heartbeat
// payload, tolerant of vendor format variance. ok=false when no known
// field shape carries a serial.
func DeviceSerialFromHeartbeat(payload []byte) (string, bool) {
	var hb heartbeatPayload
	if err := json.Unmarshal(payload, &hb); err != nil {
		return "", false
	}

	for _, candidate := range []string{
		hb.Info.FacesluiceID.String(),
		hb.FacesluiceID.String(),
		hb.Info.DeviceID.String(),
		hb.DeviceID.String(),
	} {
		if candidate != "" {
			return candidate, true
		}
	}
	return "", false
}

// Process applies one heartbeat. Returns false for malformed payloads and
// unknown devices; both are logged, never raised.
func (h *HeartbeatProcessor) Process(ctx context.Context, payload []byte) bool {
	serial, ok := DeviceSerialFromHeartbeat(payload)
	if !ok {
		h.logger.Debug("payload carries no device serial, ignoring",
			zap.Int("body_size", len(payload)))
		return false
	}

	matches := h.resolver.ResolveAll(ctx, serial)
	if len(matches) == 0 {
		h.logger.Warn("heartbeat from unknown device",
			zap.String("device_serial", serial))
		return false
	}

	applied := false
	now := time.Now()
	for _, m := range matches {
		repo := store.NewRepository(m.Handle.Pool)
		if err := repo.MarkDeviceOnline(ctx, m.Device.ID, now); err != nil {
			h.logger.Warn("failed to apply heartbeat",
				zap.String("tenant", m.Handle.Tenant.Code),
				zap.String("device_serial", serial),
				zap.Error(err),
			)
			continue
		}
		applied = true
	}

	if applied {
		observability.HeartbeatsProcessed.Inc()
		h.logger.Debug("heartbeat applied", zap.String("device_serial", serial))
	}
	return applied
}
