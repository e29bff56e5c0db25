package main

import (
	"github.com/workpulse-hris/attendance-worker/internal/config"
	"github.com/workpulse-hris/attendance-worker/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
