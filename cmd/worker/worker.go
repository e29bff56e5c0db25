package main

import (
	"context"

	"github.com/workpulse-hris/attendance-worker/internal/config"
	"github.com/workpulse-hris/attendance-worker/internal/devicecmd"
	"github.com/workpulse-hris/attendance-worker/internal/dtr"
	"github.com/workpulse-hris/attendance-worker/internal/ingest"
	"github.com/workpulse-hris/attendance-worker/internal/jobs"
	"github.com/workpulse-hris/attendance-worker/internal/mq"
	"github.com/workpulse-hris/attendance-worker/internal/observability"
	"github.com/workpulse-hris/attendance-worker/internal/parser"
	"github.com/workpulse-hris/attendance-worker/internal/photos"
	"github.com/workpulse-hris/attendance-worker/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	handler *ingest.Handler,
	dispatcher *jobs.Dispatcher,
	_ *observability.AdminServer,
) error {
	// Create context for consumers that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	ingestConsumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		BindingKey:       cfg.RabbitMQ.IngestBindingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: handler.Handle,
	})
	if err != nil {
		cancel()
		return err
	}

	jobsConsumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.JobsQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		BindingKey:       cfg.RabbitMQ.JobsBindingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: dispatcher.Handle,
	})
	if err != nil {
		cancel()
		ingestConsumer.Close()
		return err
	}

	// Register lifecycle hooks
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting worker consumers",
				zap.String("ingest_queue", cfg.RabbitMQ.IngestQueue),
				zap.String("jobs_queue", cfg.RabbitMQ.JobsQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			if err := ingestConsumer.Start(ctx); err != nil {
				return err
			}
			return jobsConsumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := ingestConsumer.Close(); err != nil {
				logger.Error("failed to close ingest consumer", zap.Error(err))
				return err
			}
			if err := jobsConsumer.Close(); err != nil {
				logger.Error("failed to close jobs consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return nil
}

// ProvideTenantRegistry creates the tenant directory registry
func ProvideTenantRegistry(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*tenant.Registry, error) {
	return tenant.NewRegistry(lc, logger, cfg.Directory.URL)
}

// ProvideResolver creates the cross-tenant device resolver
func ProvideResolver(registry *tenant.Registry, logger *zap.Logger) *tenant.Resolver {
	return tenant.NewResolver(registry, logger)
}

// ProvideParser creates the recognition message parser
func ProvideParser(logger *zap.Logger) *parser.Parser {
	return parser.NewParser(logger)
}

// ProvideDuplicateDetector creates the repeat-scan detector
func ProvideDuplicateDetector(cfg *config.Config) *ingest.DuplicateDetector {
	return ingest.NewDuplicateDetector(cfg.Matching.DuplicateWindowSeconds)
}

// ProvideWriter creates the attendance log writer
func ProvideWriter(resolver *tenant.Resolver, detector *ingest.DuplicateDetector, logger *zap.Logger) *ingest.Writer {
	return ingest.NewWriter(resolver, detector, logger)
}

// ProvideHeartbeatProcessor creates the heartbeat processor
func ProvideHeartbeatProcessor(resolver *tenant.Resolver, logger *zap.Logger) *ingest.HeartbeatProcessor {
	return ingest.NewHeartbeatProcessor(resolver, logger)
}

// ProvideIngestHandler creates the consumer dispatch handler
func ProvideIngestHandler(p *parser.Parser, writer *ingest.Writer, heartbeat *ingest.HeartbeatProcessor, logger *zap.Logger) *ingest.Handler {
	return ingest.NewHandler(p, writer, heartbeat, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the device command publisher
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.CommandExchange, cfg.RabbitMQ.AckTimeoutSeconds, logger)
}

// ProvidePhotoStore creates the employee photo store; nil when disabled
func ProvidePhotoStore(cfg *config.Config, logger *zap.Logger) (photos.Store, error) {
	s, err := photos.NewMinIOStore(cfg.Photos)
	if err != nil {
		return nil, err
	}
	if s == nil {
		logger.Info("photo store not configured, employee photos will not sync")
		return nil, nil
	}
	return s, nil
}

// ProvideDeviceCommandService creates the device command service
func ProvideDeviceCommandService(publisher *mq.Publisher, photoStore photos.Store, cfg *config.Config, logger *zap.Logger) *devicecmd.Service {
	return devicecmd.NewService(publisher, photoStore, cfg.RabbitMQ.CommandTopicPrefix, logger)
}

// ProvideDTRService creates the daily time record batch service
func ProvideDTRService(cfg *config.Config, logger *zap.Logger) *dtr.Service {
	return dtr.NewService(cfg.Matching.ScheduleToleranceMinutes, logger)
}

// ProvideJobsDispatcher creates the sync/DTR job dispatcher
func ProvideJobsDispatcher(registry *tenant.Registry, commands *devicecmd.Service, dtrService *dtr.Service, logger *zap.Logger) *jobs.Dispatcher {
	return jobs.NewDispatcher(registry, commands, dtrService, logger)
}

// ProvideAdminServer creates the health/metrics listener
func ProvideAdminServer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) *observability.AdminServer {
	return observability.NewAdminServer(lc, logger, cfg.AdminPort)
}
