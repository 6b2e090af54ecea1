package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/hostdesk/hosting-service/internal/api/http"
	"github.com/hostdesk/hosting-service/internal/api/http/handlers"
	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/config"
	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/events"
	"github.com/hostdesk/hosting-service/internal/observability"
	"github.com/hostdesk/hosting-service/internal/persistence"
	"github.com/hostdesk/hosting-service/internal/repository"
	"github.com/hostdesk/hosting-service/internal/service"
	"github.com/hostdesk/hosting-service/internal/sla"
	"github.com/hostdesk/hosting-service/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	var (
		locker     persistence.Locker
		usageStore persistence.UsageStore
		redisProbe handlers.Pinger
	)
	if redis.Available() {
		locker = persistence.NewRedisLocker(redis.Client, cfg.Locks.TenantLockTTL())
		usageStore = persistence.NewRedisUsageStore(redis.Client)
		redisProbe = redis
	} else {
		logger.Warn("redis unavailable; using in-process locks and usage store")
		locker = persistence.NewLocalLocker()
		usageStore = persistence.NewMemoryUsageStore()
	}

	pool := pg.PoolHandle()
	tenantRepo := repository.NewTenantRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	domainRepo := repository.NewDomainRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	engine := sla.NewEngine(cfg.SLA.Thresholds())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{TenantRepo: tenantRepo, Logger: logger})
	planService := service.NewPlanService(service.PlanDependencies{
		PlanRepo:   planRepo,
		TenantRepo: tenantRepo,
	})
	domainService := service.NewDomainService(service.DomainDependencies{
		DomainRepo: domainRepo,
		PlanRepo:   planRepo,
		UsageStore: usageStore,
		Locker:     locker,
		Gate:       entitlement.NewGate(),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		DomainRepo:  domainRepo,
		TenantRepo:  tenantRepo,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisProbe),
		Auth:           handlers.NewAuthHandler(authService),
		Plans:          handlers.NewPlansHandler(planService),
		Domains:        handlers.NewDomainsHandler(domainService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Support:        handlers.NewSupportTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), tenantRepo),
		Metrics:        metrics,
		MetricsPath:    cfg.Metrics.Path,
	})

	if pool != nil {
		slaSweeper := worker.NewSLASweeper(ticketService, engine, metrics, logger, worker.SLASweeperConfig{
			Interval:     cfg.SLA.SweepInterval(),
			AutoEscalate: cfg.SLA.AutoEscalate,
		})
		go slaSweeper.Run(ctx)

		expirySweeper := worker.NewDomainExpirySweeper(domainRepo, metrics, logger, cfg.SLA.SweepInterval(), nil)
		go expirySweeper.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
