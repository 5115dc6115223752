// Package app wires configuration, storage and services into a runnable
// process. Both the API server and the reconcile command build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/cache"
	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/observability"
	"github.com/spec-kit/request-desk/internal/persistence"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/service"
	"github.com/spec-kit/request-desk/internal/worker"
)

// Container holds the long-lived dependencies of the process.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Location *time.Location

	UserRepo repository.UserRepository

	Requests      *service.RequestService
	Archive       *service.ArchiveService
	Statistics    *service.StatisticsService
	Billing       *service.BillingService
	Reports       *service.ReportService
	Clients       *service.ClientService
	Notifications *service.NotificationService
	Scheduler     *worker.Scheduler
}

// NewContainer connects storage, applies migrations when configured and
// builds every service.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)

	pool := pg.Pool
	txManager := repository.NewTxManager(pool)
	requestRepo := repository.NewRequestRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	statisticRepo := repository.NewStatisticRepository(pool)
	billingRepo := repository.NewBillingRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, service.NewRedisPublisher(redis.Client), logger, cfg.Notification)
	notifications.RegisterHandlers()

	statistics := service.NewStatisticsService(service.StatisticsDependencies{
		RequestRepo:   requestRepo,
		HistoryRepo:   historyRepo,
		UserRepo:      userRepo,
		StatisticRepo: statisticRepo,
		Cache:         cache.NewStatisticsCache(redis.Client, cfg.Redis.StatsCacheTTL),
		Logger:        logger,
		Location:      loc,
		Concurrency:   cfg.Scheduler.StatisticsConcurrency,
	})
	archive := service.NewArchiveService(service.ArchiveDependencies{
		Tx:          txManager,
		RequestRepo: requestRepo,
		HistoryRepo: historyRepo,
		AuditRepo:   auditRepo,
		Statistics:  statistics,
		Logger:      logger,
		Location:    loc,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		Tx:           txManager,
		RequestRepo:  requestRepo,
		HistoryRepo:  historyRepo,
		UserRepo:     userRepo,
		ClientRepo:   clientRepo,
		CategoryRepo: categoryRepo,
		AuditRepo:    auditRepo,
		Archiver:     archive,
		Notifier:     events.NewNotifier(dispatcher, logger),
		Logger:       logger,
	})
	billing := service.NewBillingService(service.BillingDependencies{
		Tx:          txManager,
		BillingRepo: billingRepo,
		ClientRepo:  clientRepo,
		AuditRepo:   auditRepo,
		Logger:      logger,
		Location:    loc,
	})
	reports := service.NewReportService(service.ReportDependencies{
		Tx:          txManager,
		ReportRepo:  reportRepo,
		RequestRepo: requestRepo,
		HistoryRepo: historyRepo,
		ClientRepo:  clientRepo,
		UserRepo:    userRepo,
		AuditRepo:   auditRepo,
		Logger:      logger,
	})

	scheduler := worker.NewScheduler(cfg.Scheduler, worker.Jobs{
		Archive:    archive,
		Statistics: statistics,
		Billing:    billing,
	}, logger, metrics, loc)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Metrics:       metrics,
		Postgres:      pg,
		Redis:         redis,
		Location:      loc,
		UserRepo:      userRepo,
		Requests:      requests,
		Archive:       archive,
		Statistics:    statistics,
		Billing:       billing,
		Reports:       reports,
		Clients:       service.NewClientService(clientRepo, userRepo),
		Notifications: notifications,
		Scheduler:     scheduler,
	}, nil
}

// Shutdown stops the scheduler, drains post-archive work and closes storage.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := c.Archive.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain archive work: %w", err))
	}
	c.Redis.Close()
	c.Postgres.Close()
	return errors.Join(errs...)
}
