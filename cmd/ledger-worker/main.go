package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetlens/internal/cache"
	"budgetlens/internal/cli"
	applog "budgetlens/internal/log"
	"budgetlens/internal/services"
	"budgetlens/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	if res.AMQP == nil {
		logger.Error("AMQP broker unavailable, nothing to consume")
		_ = res.Cleanup()
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger.Logger)
	reportCache := cli.InitReportCache(logger, cfg, cacheManager)
	cacheManager.StartCleanup(cfg.CacheTTL)

	reports := services.NewReportService(res.Store, res.Store, reportCache)

	var snapshots worker.Snapshotter
	if res.Snapshots != nil {
		snapshots = services.NewSnapshotProcessor(reports, res.Snapshots, services.SnapshotProcessorConfig{})
	} else {
		logger.Info("No snapshot sink configured, events only invalidate cached reports")
	}
	snapshotWorker := worker.NewSnapshotWorker(reports, snapshots)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Events missed while the worker was down are covered by one snapshot of
	// the current month.
	if err := snapshotWorker.StartupSnapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", "error", err)
	}

	logger.Info("Consuming ledger changed messages", "queue", cfg.AMQPQueue)
	if err := res.AMQP.ConsumeLedgerChanged(ctx, snapshotWorker.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
