package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/SergeSyntax/mock-server/internal/database"
	"github.com/SergeSyntax/mock-server/internal/handlers"
	"github.com/SergeSyntax/mock-server/internal/logging"
	"github.com/SergeSyntax/mock-server/internal/middleware"
	"github.com/SergeSyntax/mock-server/internal/routes"
	"github.com/SergeSyntax/mock-server/internal/services"
	"github.com/SergeSyntax/mock-server/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdout := logging.Setup("info")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	stdout = logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Store
	s, err := store.Open(ctx, cfg, store.DefaultOptions())
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("store opened", "driver", cfg.StoreDriver, "collections", s.Collections())

	// SQL log sink (ERROR+ async batch) and retention
	var dbLogHandler *logging.DBHandler
	var stopCleanup func()
	if gs, ok := s.(*store.GormStore); ok {
		if err := database.MigrateLogs(gs.DB()); err != nil {
			slog.Error("log migration failed", "error", err)
			os.Exit(1)
		}
		dbLogHandler = logging.NewDBHandler(gs.DB(), 5*time.Second)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, dbLogHandler)))

		cleanup, err := logging.StartCleanup(gs.DB(), cfg.LogRetention)
		if err != nil {
			slog.Error("failed to schedule log cleanup", "error", err)
			os.Exit(1)
		}
		stopCleanup = func() { <-cleanup.Stop().Done() }
	}

	// Auth
	users := services.NewUserRepository(s)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	hasher := auth.Hasher{Cost: cfg.BcryptCost}
	guard := auth.NewGuard(
		auth.NewBearer(tokens, users),
		auth.NewLocal(users),
	)
	authService := services.NewAuthService(users, tokens, hasher)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(s)
	resourceHandler := handlers.NewResourceHandler(s, hasher)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		Immutable:    true,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(metrics.Handler())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.NoCache())
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, guard, registry, authHandler, healthHandler, resourceHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if stopCleanup != nil {
		stopCleanup()
	}
	if dbLogHandler != nil {
		slog.SetDefault(slog.New(stdout))
		dbLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := s.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("server stopped")
}
