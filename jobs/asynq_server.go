package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// OverdueMarker is the slice of the invoice service the sweep needs.
type OverdueMarker interface {
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int, error)
}

// QuotationExpirer is the slice of the quotation service the sweep needs.
type QuotationExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// Worker wraps the asynq server and scheduler for the billing sweeps.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *slog.Logger
}

// WorkerConfig bundles the worker's dependencies.
type WorkerConfig struct {
	RedisAddr        string
	OverdueSweepCron string
	Logger           *slog.Logger
	Invoices         OverdueMarker
	Quotations       QuotationExpirer
}

// NewWorker builds the asynq server, registers the task handlers and wires
// the cron schedule.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeOverdueSweep, func(ctx context.Context, _ *asynq.Task) error {
		n, err := cfg.Invoices.MarkOverdueInvoices(ctx, time.Now().UTC())
		if err != nil {
			cfg.Logger.Error("overdue sweep failed", slog.Any("error", err))
			return err
		}
		cfg.Logger.Info("overdue sweep completed", slog.Int("flagged", n))
		return nil
	})
	mux.HandleFunc(TaskTypeQuotationExpiry, func(ctx context.Context, _ *asynq.Task) error {
		n, err := cfg.Quotations.ExpireStale(ctx, time.Now().UTC())
		if err != nil {
			cfg.Logger.Error("quotation expiry sweep failed", slog.Any("error", err))
			return err
		}
		cfg.Logger.Info("quotation expiry sweep completed", slog.Int("expired", n))
		return nil
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(cfg.OverdueSweepCron, NewOverdueSweepTask()); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(cfg.OverdueSweepCron, NewQuotationExpiryTask()); err != nil {
		return nil, err
	}

	return &Worker{server: server, scheduler: scheduler, mux: mux, logger: cfg.Logger}, nil
}

// Run starts the scheduler and blocks serving tasks until Shutdown.
func (w *Worker) Run() error {
	if err := w.scheduler.Start(); err != nil {
		return err
	}
	return w.server.Run(w.mux)
}

// Shutdown stops the scheduler and drains the server.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}
