package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tenaplex/tenaplex/internal/server/config"
	"github.com/tenaplex/tenaplex/internal/server/handlers"
	"github.com/tenaplex/tenaplex/internal/server/middleware"
	"github.com/tenaplex/tenaplex/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Tenaplex Server\nVersion:    %s\nBuild Date: %s\n", Version, BuildDate)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	authHandler := handlers.NewAuthHandler(logger, store, store, store, jwtConfig, cfg.CookieSecure)
	datasetHandler := handlers.NewDatasetHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, store.DB())

	requireAuth := middleware.AuthMiddleware(logger, jwtConfig)
	authLimiter := middleware.RateLimitMiddleware(cfg.AuthRateLimit, cfg.RateWindow, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /auth/tenants", authHandler.Tenants)
	mux.Handle("POST /auth/register", authLimiter(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /auth/login", authLimiter(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	mux.Handle("GET /datasets", requireAuth(http.HandlerFunc(datasetHandler.List)))
	mux.Handle("POST /datasets", requireAuth(http.HandlerFunc(datasetHandler.Upload)))
	mux.Handle("GET /datasets/{id}", requireAuth(http.HandlerFunc(datasetHandler.Get)))
	mux.Handle("DELETE /datasets/{id}", requireAuth(http.HandlerFunc(datasetHandler.Delete)))
	mux.Handle("POST /datasets/{id}/aggregate", requireAuth(http.HandlerFunc(datasetHandler.Aggregate)))

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingMiddleware(logger)(
			middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateWindow, logger)(mux)))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Sweep expired refresh tokens in the background so the table does not
	// accumulate dead session chains.
	go sweepExpiredTokens(ctx, logger, store, cfg.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func sweepExpiredTokens(ctx context.Context, logger *slog.Logger, store *sqlite.Storage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpiredTokens(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "expired token sweep failed", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				logger.InfoContext(ctx, "swept expired refresh tokens", slog.Int("deleted", deleted))
			}
		}
	}
}
