package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetlens/internal/cache"
	"budgetlens/internal/cli"
	apphttp "budgetlens/internal/http"
	applog "budgetlens/internal/log"
	"budgetlens/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	logger.Info("Starting budgetlens")

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)

	cacheManager := cache.NewManager(logger.Logger)
	reportCache := cli.InitReportCache(logger, cfg, cacheManager)
	cacheManager.StartCleanup(cfg.CacheTTL)

	reports := services.NewReportService(res.Store, res.Store, reportCache)

	// A nil *amqp.Client must not become a non-nil Publisher.
	var publisher services.Publisher
	if res.AMQP != nil {
		publisher = res.AMQP
	}
	ledger := services.NewLedgerService(res.Store, publisher, reports)

	// Without a broker there is no ledger-worker, so snapshots are polled here.
	var processor *services.SnapshotProcessor
	if publisher == nil && res.Snapshots != nil {
		processor = services.NewSnapshotProcessor(reports, res.Snapshots, services.SnapshotProcessorConfig{
			PollInterval: cfg.SnapshotInterval,
		})
		if err := processor.Start(context.Background()); err != nil {
			logger.Error("Failed to start snapshot processor", "error", err)
			os.Exit(1)
		}
	}

	var ready func(ctx context.Context) error
	if p, ok := res.Store.(pinger); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, reports, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              ready,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if processor != nil {
			if err := processor.Stop(ctx); err != nil {
				logger.Warn("Snapshot processor stop error", "error", err)
			}
		}
		cacheManager.Stop()
		if c, ok := reportCache.(interface{ Close() }); ok {
			c.Close()
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting HTTP server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", publisher != nil,
		"snapshot_polling", processor != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
