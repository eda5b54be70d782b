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

	httptransport "github.com/deskops/helpdesk-admin/internal/api/http"
	"github.com/deskops/helpdesk-admin/internal/api/http/handlers"
	"github.com/deskops/helpdesk-admin/internal/auth"
	"github.com/deskops/helpdesk-admin/internal/client"
	"github.com/deskops/helpdesk-admin/internal/config"
	"github.com/deskops/helpdesk-admin/internal/events"
	"github.com/deskops/helpdesk-admin/internal/observability"
	"github.com/deskops/helpdesk-admin/internal/persistence"
	"github.com/deskops/helpdesk-admin/internal/repository"
	"github.com/deskops/helpdesk-admin/internal/service"
	"github.com/deskops/helpdesk-admin/internal/slice"
	"github.com/deskops/helpdesk-admin/internal/store"
	"github.com/deskops/helpdesk-admin/internal/worker"
)

const preloadTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	backend, err := client.New(cfg.Backend, logger)
	if err != nil {
		logger.Fatal("failed to build backend client", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	deps := service.JournalDependencies{Dispatcher: dispatcher}
	if pg.Enabled() {
		deps.Repo = repository.NewMutationJournalRepository(pg.PoolHandle())
	}
	if redis.Available() {
		deps.Publisher = events.NewRedisPublisher(redis.Client, cfg.Events.RedisChannel)
	}
	journal := service.NewJournalService(deps, logger, cfg.Events)
	worker.StartJournalWorker(journal)

	sliceOpts := []slice.Option{slice.WithDispatcher(dispatcher), slice.WithMetrics(metrics)}
	if cfg.Slice.LatestRequestWins {
		sliceOpts = append(sliceOpts, slice.WithLatestRequestWins())
	}
	st := store.New(cfg.Catalog, backend, logger, sliceOpts...)

	if cfg.Slice.PreloadOnStart {
		preloadCtx, preloadCancel := context.WithTimeout(ctx, preloadTimeout)
		if err := st.Preload(preloadCtx); err != nil {
			logger.Warn("initial preload incomplete", zap.Error(err))
		}
		preloadCancel()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.App.Name)
	authenticator := auth.NewOperatorAuthenticator(cfg.Auth, tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var pgCheck, redisCheck handlers.Pinger
	if pg.Enabled() {
		pgCheck = pg
	}
	if redis.Available() {
		redisCheck = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.DependencyCheck{Name: "postgres", Target: pgCheck},
			handlers.DependencyCheck{Name: "redis", Target: redisCheck, Optional: true},
		),
		Auth:           handlers.NewAuthHandler(authenticator),
		Resources:      handlers.NewResourcesHandler(st),
		Tickets:        handlers.NewTicketsHandler(st),
		Ops:            handlers.NewOpsHandler(journal, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("console api listening", zap.String("addr", cfg.App.Addr()), zap.Strings("resources", st.Names()))
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
