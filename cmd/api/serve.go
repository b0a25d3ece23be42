package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/voc-service/internal/api/http"
	"github.com/spec-kit/voc-service/internal/api/http/handlers"
	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/config"
	"github.com/spec-kit/voc-service/internal/events"
	"github.com/spec-kit/voc-service/internal/learning"
	"github.com/spec-kit/voc-service/internal/notify"
	"github.com/spec-kit/voc-service/internal/observability"
	"github.com/spec-kit/voc-service/internal/persistence"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/internal/service"
	"github.com/spec-kit/voc-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Connect to Postgres and Redis, apply migrations when enabled and serve the ticket API until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool(), logger); err != nil {
			return err
		}
	}

	redisConn := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redisConn.Close()

	pool, err := worker.NewPool(ctx, cfg.Worker.PoolSize, logger)
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer pool.Shutdown(shutdownTimeout)

	metrics := observability.NewMetrics()
	dbPool := pg.Pool()
	ticketRepo := repository.NewTicketRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	transactor := repository.NewTransactor(dbPool)

	sequence := ticketSequence(ctx, redisConn, ticketRepo, logger)
	identifiers := service.NewIdentifierGenerator(sequence, ticketRepo, cfg.Lifecycle.IdentifierMaxRetries, time.Now, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(notificationDependencies(cfg, dispatcher, pool, redisConn, logger))
	worker.StartNotificationWorker(notificationService)

	var learner service.LearningPort
	if cfg.Learning.Enabled {
		learner = learning.NewClient(cfg.Learning)
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		Categories:  categoryRepo,
		Transactor:  transactor,
		Ledger:      service.NewHistoryLedger(repository.NewStatusHistoryRepository(dbPool), time.Now),
		Identifiers: identifiers,
		Notifier:    events.NewNotifier(dispatcher),
		Learner:     learner,
		Logger:      logger.Named("lifecycle"),
		Clock:       time.Now,
		PhoneRegion: cfg.Lifecycle.DefaultPhoneRegion,
	})
	bulkService := service.NewBulkService(service.BulkDependencies{
		Lifecycle:  ticketService,
		TicketRepo: ticketRepo,
		Transactor: transactor,
		Metrics:    metrics,
		Logger:     logger.Named("bulk"),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, userRepo, tokens)

	readiness := map[string]handlers.Pinger{"postgres": pg}
	if redisConn.Enabled() {
		readiness["redis"] = redisConn
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
		BodyLimit:    4 * 1024 * 1024,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthDependencies{
			ServiceName:  cfg.App.Name,
			Version:      cfg.App.Version,
			Dependencies: readiness,
			Metrics:      metrics,
			PoolStats:    pool.Stats,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Bulk:           handlers.NewBulkHandler(bulkService),
		Categories:     handlers.NewCategoriesHandler(service.NewCategoryService(categoryRepo)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo).Handle,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// ticketSequence prefers the shared Redis counter and falls back to an in-process one.
func ticketSequence(ctx context.Context, redisConn *persistence.Redis, tickets repository.TicketRepository, logger *zap.Logger) repository.SequenceRepository {
	seed := service.SeedFromStore(tickets)
	if redisConn.Enabled() {
		if err := redisConn.Ping(ctx); err == nil {
			return repository.NewRedisSequenceRepository(redisConn.Client(), seed, logger.Named("sequence"))
		}
	}
	logger.Warn("redis unavailable; ticket sequence is process local")
	return service.NewMemorySequence(seed)
}

func notificationDependencies(cfg *config.Config, dispatcher events.Dispatcher, pool *worker.Pool, redisConn *persistence.Redis, logger *zap.Logger) service.NotificationDependencies {
	deps := service.NotificationDependencies{
		Dispatcher: dispatcher,
		Pool:       pool,
		Slack:      notify.NewSlackClient(cfg.Notification.SlackWebhookURL, &http.Client{Timeout: cfg.Notification.Timeout()}),
		Mailer:     notify.NewMailer(cfg.Notification, notify.NewMarkdownRenderer()),
		Logger:     logger.Named("notify"),
	}
	if redisConn.Enabled() {
		deps.Realtime = notify.NewRealtimePublisher(redisConn.Client(), cfg.Notification.RealtimeChannel)
	}
	return deps
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
