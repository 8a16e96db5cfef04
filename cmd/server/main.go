package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/config"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/credentials"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/database"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/logging"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/reports"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/routes"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/secrets"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdout := logging.Setup()

	cfg := config.Load()

	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Error("required environment variables are not set", "missing", strings.Join(missing, ", "))
		os.Exit(1)
	}

	sealer, err := secrets.NewSealer(cfg.EncryptionKey)
	if err != nil {
		slog.Error("invalid ENCRYPTION_KEY", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetentionDays, cleanupDone)

	// Provider gateways
	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}
	gateways := providers.NewRegistry(
		providers.NewGitHubGateway(providerClient, cfg.GitHubAPIURL),
		providers.NewTogglGateway(providerClient, cfg.TogglAPIURL),
		providers.NewNotionGateway(providerClient, cfg.NotionAPIURL, cfg.NotionVersion),
	)
	slog.Info("provider gateways configured", "providers", gateways.Providers(), "timeout", cfg.ProviderTimeout.String())

	backend, closeBackend, err := newBackend(context.Background(), cfg)
	if err != nil {
		slog.Error("generation backend init failed", "provider", cfg.AIProvider, "error", err)
		os.Exit(1)
	}

	// Stores and services
	credentialStore := credentials.NewStore(db, sealer)
	reportStore := reports.NewStore(db)

	authService := services.NewAuthService(db, cfg, credentialStore, reportStore)
	credentialService := credentials.NewService(credentialStore, gateways, cfg.ProviderTimeout)
	orchestrator := reports.NewOrchestrator(reportStore, credentialStore, gateways, backend, cfg.ProviderTimeout, cfg.AITimeout)
	reportService := reports.NewService(reportStore, cfg.ReportsAllowReopen)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// A regeneration can wait on every provider and then the AI backend.
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + cfg.ProviderTimeout + 10*time.Second,
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
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Health:      handlers.NewHealthHandler(db),
		Credentials: handlers.NewCredentialHandler(credentialService),
		Reports:     handlers.NewReportHandler(orchestrator, reportService),
	})

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

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := closeBackend(); err != nil {
		slog.Error("generation backend close error", "error", err)
	}
	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}
