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

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/airbyte"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/cache"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/config"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/database"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/logging"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/origin"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/routes"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg.LogSummary()

	// User store
	userStore, err := store.Open(context.Background(), cfg)
	if err != nil {
		slog.Error("user store unavailable", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("user store ready", "driver", cfg.StoreDriver)

	// PostgreSQL log handler (ERROR+ async batch), only when a database is open
	var pgLogHandler *logging.PGHandler
	cleanupDone := make(chan struct{})
	if database.DB != nil {
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))
		logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)
	}

	// Identity
	identityCache := cache.NewIdentityCache(cfg.IdentityCacheSize, cfg.IdentityCacheTTL)
	resolver := session.NewResolver(userStore, identityCache)
	policy := origin.NewPolicy(cfg.AllowedOrigin, cfg.ExtraOrigins...)

	airbyteClient := airbyte.NewClient(airbyte.Config{
		BaseURL:          cfg.AirbyteAPIURL,
		ClientID:         cfg.AirbyteClientID,
		ClientSecret:     cfg.AirbyteClientSecret,
		OrganizationID:   cfg.AirbyteOrganizationID,
		Timeout:          cfg.AirbyteTimeout,
		ReuseAccessToken: cfg.AirbyteCacheAccessToken,
	})

	// Services
	gateService, err := services.NewGateService(cfg.WebappPassword)
	if err != nil {
		slog.Error("password gate setup failed", "error", err)
		os.Exit(1)
	}
	userService := services.NewUserService(resolver, userStore)
	widgetService := services.NewWidgetService(resolver, airbyteClient, policy)

	// Handlers
	cookies := handlers.CookiePolicy{Secure: cfg.IsProduction()}
	h := routes.Handlers{
		Health:      handlers.NewHealthHandler(cfg.StoreDriver, userStore),
		Gate:        handlers.NewGateHandler(gateService, cookies),
		User:        handlers.NewUserHandler(userService, cookies),
		Widget:      handlers.NewWidgetHandler(widgetService),
		Admin:       handlers.NewAdminHandler(userService, identityCache),
		AdminSecret: cfg.AdminJWTSecret,
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, policy, h)

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

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := userStore.Close(); err != nil {
		slog.Error("user store close error", "error", err)
	}

	slog.Info("server stopped")
}
