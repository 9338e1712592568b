package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/benleytuano/ts-api-service/internal/api/http"
	"github.com/benleytuano/ts-api-service/internal/api/http/handlers"
	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/cache"
	"github.com/benleytuano/ts-api-service/internal/config"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/observability"
	"github.com/benleytuano/ts-api-service/internal/persistence"
	"github.com/benleytuano/ts-api-service/internal/service"
	"github.com/benleytuano/ts-api-service/internal/worker"
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

	store, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	references := store.References
	dependencies := map[string]handlers.Pinger{store.Driver: store}
	if redis != nil {
		references = cache.NewReferenceCache(references, redis.Client, cfg.Redis.CacheTTL(), logger)
		dependencies["redis"] = redis
	}

	policy, err := auth.LoadPolicy(cfg.RBAC.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load rbac policy", zap.Error(err), zap.String("path", cfg.RBAC.PolicyFile))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics))

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: store.Tickets,
		UserRepo:   store.Users,
		Policy:     policy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets,
		UpdateRepo:    store.Updates,
		ReferenceRepo: references,
		Assignments:   assignments,
		Policy:        policy,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
		Policy:         policy,
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()), zap.String("store", store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
