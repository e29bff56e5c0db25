package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithDevice returns a logger with the device serial field attached
func WithDevice(logger *zap.Logger, deviceSerial string) *zap.Logger {
	return logger.With(zap.String("device_serial", deviceSerial))
}

// WithTenant returns a logger with the tenant code field attached
func WithTenant(logger *zap.Logger, tenantCode string) *zap.Logger {
	return logger.With(zap.String("tenant", tenantCode))
}
