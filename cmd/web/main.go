package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront-web/internal/api/http"
	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/config"
	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/observability"
	"github.com/spec-kit/storefront-web/internal/persistence"
	"github.com/spec-kit/storefront-web/internal/repository"
	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/session"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
	"github.com/spec-kit/storefront-web/internal/worker"
)

const janitorInterval = time.Minute

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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var auditRepo repository.AuthEventRepository
	if pool := pg.PoolHandle(); pool != nil {
		auditRepo = repository.NewAuthEventRepository(pool)
	}
	auditService := service.NewAuditService(dispatcher, logger, auditRepo)
	worker.StartAuditWorker(auditService)

	sealer, err := tokenstore.NewSealerFromHex(cfg.Session.SealKey)
	if err != nil {
		logger.Fatal("invalid session seal key", zap.Error(err))
	}
	if cfg.Session.SealKey == "" {
		logger.Warn("SESSION_SEAL_KEY not provided; remembered sessions will not survive a restart")
	}
	temporary := tokenstore.NewMemoryKeyspace()
	tokens := tokenstore.NewManager(tokenstore.ManagerConfig{
		Remembered:   tokenstore.NewRedisKeyspace(redis.Client),
		Temporary:    temporary,
		Sealer:       sealer,
		RememberTTL:  cfg.Session.RememberTTL(),
		TemporaryTTL: cfg.Session.TemporaryTTL(),
		Logger:       logger,
	})
	registry := session.NewRegistry(cfg.Session.StateIdle())

	raw := &http.Client{Timeout: cfg.Backend.Timeout()}
	pipeline := backend.NewPipeline(
		backend.NewRefreshClient(cfg.Backend.BaseURL, raw),
		logger,
		backend.WithMetrics(metrics),
		backend.WithEvents(dispatcher),
	)
	transport := backend.NewTransport(http.DefaultTransport)
	transport.Install(backend.InterceptorName, pipeline)
	api := backend.NewClient(cfg.Backend.BaseURL, &http.Client{
		Transport: transport,
		Timeout:   cfg.Backend.Timeout(),
	})

	authService := service.NewAuthService(api, dispatcher, logger)
	roleService := service.NewRoleService(api, logger)
	render := handlers.NewRenderer(cfg.App.Name, cfg.App.Language)
	loginLimiter := httptransport.NewIPLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst, 10*time.Minute)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Views:        httptransport.NewViewEngine(cfg.App.Env == "development"),
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		Auth:    authService,
		Render:  render,
	})
	app.Use(httptransport.SessionMiddleware(cfg.Session, tokens, registry))

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:         handlers.NewAuthHandler(authService, render),
		Pages:        handlers.NewPagesHandler(api, auditService, render),
		Roles:        handlers.NewRolesHandler(roleService, render),
		Guard:        httptransport.NewGuard(authService, api, render, metrics, logger),
		LoginLimiter: loginLimiter,
		Metrics:      metrics,
	})

	janitor := worker.NewJanitor(janitorInterval, logger)
	janitor.Add("sessions", worker.SweeperFunc(registry.Evict))
	janitor.Add("temporary_tokens", temporary)
	janitor.Add("login_limiter", loginLimiter)
	janitor.Start(ctx)

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
