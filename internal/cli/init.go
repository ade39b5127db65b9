// Package cli provides common CLI initialization utilities shared by
// cmd/budgetlens and cmd/ledger-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetlens/internal/backend"
	"budgetlens/internal/cache"
	"budgetlens/internal/config"
	"budgetlens/internal/core"
	applog "budgetlens/internal/log"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT
// and sets it as the default logger.
func SetupLogger(component string) *applog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Format:    os.Getenv("LOG_FORMAT"),
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend builds the configured ledger backend.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// InitReportCache builds the report cache and registers it for expiry sweeps.
func InitReportCache(logger *applog.Logger, cfg *config.Config, m *cache.Manager) cache.Cache[core.BudgetReport] {
	c, err := cache.New[core.BudgetReport](cache.Backend(cfg.CacheBackend), cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		logger.Warn("Report cache disabled", "error", err)
		return nil
	}
	if m != nil {
		m.Register(c)
	}
	logger.Info("Report cache ready", "backend", cfg.CacheBackend, "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	return c
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
