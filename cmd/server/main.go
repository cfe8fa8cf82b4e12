package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lookaway/internal/config"
	"lookaway/internal/database"
	"lookaway/internal/handlers"
	"lookaway/internal/logging"
	"lookaway/internal/reporting"
	"lookaway/internal/repository"
	"lookaway/internal/security"
	"lookaway/internal/service"
	"lookaway/internal/telemetry"
)

const (
	serviceName     = "lookaway"
	monitorTokenTTL = 12 * time.Hour
	cleanupInterval = time.Hour
)

func main() {
	if err := run(); err != nil {
		logging.L().Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)
	logger := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Failed to shut down telemetry", slog.String("error", err.Error()))
		}
	}()

	sentryMiddleware, flushSentry, err := reporting.NewSentryMiddlewareOrMock(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return err
	}
	defer flushSentry()

	routing, err := service.ParseRoutingMode(cfg.EventRouting)
	if err != nil {
		return fmt.Errorf("invalid LOOKAWAY_EVENT_ROUTING: %w", err)
	}

	startup := handlers.NewStartupStatus()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connection established", slog.String("type", cfg.DatabaseType))
	startup.CompleteStep(handlers.StepDatabase)

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepMigrations)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.SessionDuration)
	sessionService := service.NewSessionService(progressRepo, routing)
	authService.OnLogout(sessionService.CloseOnLogout)
	scoringService := service.NewScoringService(userRepo, progressRepo)

	limiter := security.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, limiter)
	mux := handlers.NewRouter(
		middleware,
		handlers.NewAuthHandler(authService),
		handlers.NewSessionHandler(sessionService, scoringService,
			security.NewTokenSigner(cfg.SecretKey, monitorTokenTTL)),
		startup,
	)
	startup.CompleteStep(handlers.StepServices)

	handler := otelhttp.NewHandler(sentryMiddleware(handlers.Logging(mux)), serviceName)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupExpiredSessions(ctx, authService)

	startup.MarkReady()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			slog.String("addr", server.Addr),
			slog.String("routing", routing.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Server shutting down")
	startup.MarkShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// cleanupExpiredSessions periodically removes expired login sessions and
// ends the monitoring sessions bound to them
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				reporting.Report(ctx, err)
			}
			if n > 0 {
				logging.L().Info("Cleaned up expired sessions", slog.Int64("count", n))
			}
		}
	}
}
