package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/quotations"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	recorder := audit.NewRecorder(pool)
	settlementCache := ledger.NewSettlementCache(redisClient, cfg.SettlementTTL, logger, nil, nil)

	invoiceRepo := invoices.NewPgRepository(pool, recorder)
	invoiceSvc := invoices.NewService(invoiceRepo, nil, settlementCache, logger)

	quotationRepo := quotations.NewPgRepository(pool)
	quotationSvc := quotations.NewService(quotationRepo, invoiceSvc)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:        cfg.RedisAddr,
		OverdueSweepCron: cfg.OverdueSweepCron,
		Logger:           logger,
		Invoices:         invoiceSvc,
		Quotations:       quotationSvc,
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		worker.Shutdown()
	}()

	logger.Info("worker starting", slog.String("cron", cfg.OverdueSweepCron))
	if err := worker.Run(); err != nil {
		logger.Error("worker failed", slog.Any("error", err))
		os.Exit(1)
	}
}
