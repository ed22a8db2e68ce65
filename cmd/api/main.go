package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-router/internal/api/http"
	"github.com/spec-kit/support-router/internal/api/http/handlers"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/escalation"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/notify"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/persistence"
	"github.com/spec-kit/support-router/internal/ratelimit"
	"github.com/spec-kit/support-router/internal/repository"
	"github.com/spec-kit/support-router/internal/service"
	"github.com/spec-kit/support-router/internal/worker"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher *events.AMQPPublisher
	if cfg.Broker.URL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Warn("broker unavailable, domain events stay in-process", zap.Error(err))
		}
	}

	var notifier notify.Notifier
	if cfg.Gateway.BaseURL != "" {
		notifier = notify.NewGatewayNotifier(cfg.Gateway, logger)
	} else {
		logger.Warn("no gateway configured, deliveries are log-only")
		notifier = notify.NewLogNotifier(logger)
	}

	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		ReceiptRepo: receiptRepo,
		Notifier:    notifier,
		Logger:      logger,
		Metrics:     metrics,
	})

	queue := escalation.NewRedisQueue(redis.Client)

	ticketDeps := service.TicketDependencies{
		TicketRepo:      ticketRepo,
		UserRepo:        userRepo,
		RatingRepo:      ratingRepo,
		Dispatch:        dispatchService,
		Notifier:        notifier,
		Limiter:         ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window()),
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		EscalationDelay: cfg.Escalation.Delay(),
	}

	// Scheduler and ticket service reference each other: the service arms
	// the queue, the scheduler fires Escalate. The closure breaks the cycle;
	// the scheduler only fires after Start, well past the assignment below.
	var ticketService *service.TicketService
	scheduler := escalation.NewScheduler(queue, func(ctx context.Context, ticketID int64) error {
		return ticketService.Escalate(ctx, ticketID)
	}, cfg.Escalation.PollInterval(), logger)
	ticketDeps.Scheduler = scheduler
	ticketService = service.NewTicketService(ticketDeps)

	claimService := service.NewClaimService(service.ClaimDependencies{
		TicketRepo: ticketRepo,
		Dispatch:   dispatchService,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		UserRepo:   userRepo,
		TicketRepo: ticketRepo,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, notifier, logger, cfg.App.OwnerExternalID)

	bg := worker.New(worker.Dependencies{
		Scheduler:     scheduler,
		Notifications: notificationService,
		Publisher:     publisher,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	bg.Start(ctx)
	defer bg.Stop()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, cfg.App.OwnerExternalID)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Gateway: handlers.NewGatewayHandler(ticketService, tokens, cfg.Gateway.WebhookSecret),
		Staff:   handlers.NewStaffHandler(claimService, ticketService),
		Users:   handlers.NewUsersHandler(ticketService, directoryService),
		Admin:   handlers.NewAdminHandler(directoryService),
		Health:  handlers.NewHealthHandler(pg, redis),
		Auth:    authMiddleware,
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
