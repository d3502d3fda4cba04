package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/customers"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/quotations"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
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

	metrics := observability.NewMetrics()
	validate := validator.New()

	recorder := audit.NewRecorder(pool)
	settlementCache := ledger.NewSettlementCache(redisClient, cfg.SettlementTTL, logger,
		metrics.SettlementCacheHits, metrics.SettlementCacheMisses)

	customerRepo := customers.NewPgRepository(pool)
	customerSvc := customers.NewService(customerRepo)

	invoiceRepo := invoices.NewPgRepository(pool, recorder)
	invoiceSvc := invoices.NewService(invoiceRepo, customerSvc, settlementCache, logger)

	quotationRepo := quotations.NewPgRepository(pool)
	quotationSvc := quotations.NewService(quotationRepo, invoiceSvc)

	facade := ledger.NewFacade(invoiceSvc, recorder, settlementCache)

	router := app.NewRouter(app.RouterDeps{
		Logger:     logger,
		Config:     cfg,
		Metrics:    metrics,
		DB:         pool,
		Redis:      redisClient,
		Invoices:   invoices.NewHandler(invoiceSvc, validate),
		Customers:  customers.NewHandler(customerSvc, validate),
		Quotations: quotations.NewHandler(quotationSvc, validate),
		Ledger:     ledger.NewHandler(facade),
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
