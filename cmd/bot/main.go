package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campfirehq/intake-service/internal/api/http"
	"github.com/campfirehq/intake-service/internal/api/http/handlers"
	"github.com/campfirehq/intake-service/internal/auth"
	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/events"
	"github.com/campfirehq/intake-service/internal/observability"
	"github.com/campfirehq/intake-service/internal/persistence"
	"github.com/campfirehq/intake-service/internal/repository"
	"github.com/campfirehq/intake-service/internal/service"
	"github.com/campfirehq/intake-service/internal/worker"
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

	chatClient := chat.NewGatewayClient(cfg.Chat.GatewayURL, cfg.Chat.GatewayToken, cfg.Chat.GatewayTimeout())
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	quotaRepo := repository.NewQuotaRepository(pool)
	suspensionRepo := repository.NewSuspensionRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	exportRepo := repository.NewExportRepository(pool)
	var windowStore repository.WindowStore
	if client := redis.Handle(); client != nil {
		windowStore = repository.NewRedisWindowStore(client)
	}

	quotaService := service.NewQuotaService(quotaRepo, dispatcher, logger, cfg.Intake.DailyLimit, cfg.Intake.Location())
	suspensionService := service.NewSuspensionService(suspensionRepo, dispatcher, logger)
	registry := service.NewTicketRegistry(chatClient, cfg.Chat)
	guard := service.NewInflightGuard()

	admissionService := service.NewAdmissionService(service.AdmissionDependencies{
		Chat:           chatClient,
		Quota:          quotaService,
		SuspensionRepo: suspensionRepo,
		AuditRepo:      auditRepo,
		Registry:       registry,
		Guard:          guard,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
	}, cfg.Chat, cfg.Intake, logger)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		Chat:       chatClient,
		Registry:   registry,
		AuditRepo:  auditRepo,
		ExportRepo: exportRepo,
		Dispatcher: dispatcher,
	}, cfg.Chat, cfg.Intake, logger)

	scanner := service.NewScanner(registry, lifecycleService, chatClient, metrics, logger,
		cfg.Intake.RemindAfter, cfg.Intake.ArchiveAfter, cfg.Intake.ConfirmGrace,
		cfg.Intake.HistoryLimit, cfg.Intake.WorkspaceOpTimeout)

	panelService := service.NewPanelService(chatClient, quotaService, suspensionRepo, cfg.Chat, cfg.Intake, logger)
	panelService.RegisterHandlers(dispatcher)

	limiter := service.NewAdmissionLimiter(windowStore, cfg.Intake.RatePerMinute)

	authService := service.NewAuthService(cfg.Auth, staffRepo, resetRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	// Catch up on a quota day boundary missed while the service was down.
	if err := quotaService.ResetIfNewDay(ctx); err != nil {
		logger.Warn("startup quota reset failed", zap.Error(err))
	}
	panelService.RefreshLogged(ctx)

	scheduler, err := worker.NewScheduler(worker.SchedulerDependencies{
		Scanner: scanner,
		Quota:   quotaService,
		Panel:   panelService,
	}, cfg.Intake, logger)
	if err != nil {
		logger.Fatal("failed to build scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Admission:      handlers.NewAdmissionHandler(admissionService, lifecycleService, limiter),
		Admin:          handlers.NewAdminHandler(quotaService, suspensionService, lifecycleService),
		Staff:          handlers.NewStaffHandler(authService),
		AuthMiddleware: authMiddleware,
		GatewayToken:   cfg.Chat.GatewayToken,
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
