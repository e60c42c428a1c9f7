package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk-sla/internal/api/http"
	"github.com/spec-kit/servicedesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk-sla/internal/config"
	"github.com/spec-kit/servicedesk-sla/internal/events"
	"github.com/spec-kit/servicedesk-sla/internal/observability"
	"github.com/spec-kit/servicedesk-sla/internal/persistence"
	"github.com/spec-kit/servicedesk-sla/internal/repository"
	"github.com/spec-kit/servicedesk-sla/internal/service"
	"github.com/spec-kit/servicedesk-sla/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	trackingRepo := repository.NewSlaTrackingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	notifier := service.NewNotifierService(notificationRepo, userRepo, cfg.Sla.DedupWindow(), logger)
	monitor := service.NewMonitorService(cfg.Sla, service.MonitorDependencies{
		TrackingRepo: trackingRepo,
		UserRepo:     userRepo,
		Notifier:     notifier,
		Dispatcher:   dispatcher,
		RedisClient:  redis.ClientHandle(),
		Metrics:      metrics,
		Logger:       logger,
	})
	defer monitor.Close()

	delivery := service.NewDeliveryService(dispatcher, logger, cfg.Notification)
	worker.StartDeliveryWorker(delivery)
	worker.StartSlaScheduler(ctx, monitor, cfg.Sla, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	slaHandler := handlers.NewSlaHandler(monitor, cfg.Sla.CronSecret, logger)
	notificationHandler := handlers.NewNotificationHandler(notifier)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        healthHandler,
		Sla:           slaHandler,
		Notifications: notificationHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
