package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"consultations/internal/domain"
)

// WorkerConfig bounds how hard one job is retried.
type WorkerConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultWorkerConfig is three tries with exponential backoff.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{MaxAttempts: 3, InitialInterval: 2 * time.Second, MaxInterval: 30 * time.Second}
}

// Worker consumes jobs and executes each one with bounded retry.
type Worker struct {
	consumer domain.JobConsumer
	handler  domain.JobHandler
	cfg      WorkerConfig
	logger   *slog.Logger
}

// NewWorker creates a Worker. A non-positive MaxAttempts means a single try.
func NewWorker(consumer domain.JobConsumer, handler domain.JobHandler, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{consumer: consumer, handler: handler, cfg: cfg, logger: logger}
}

// Run blocks consuming jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("job worker started", "max_attempts", w.cfg.MaxAttempts)
	err := w.consumer.Consume(ctx, w.Execute)
	w.logger.Info("job worker stopped")
	return err
}

// Execute runs job until it succeeds, fails permanently or runs out of
// attempts. The final error is logged here and returned so the delivery is
// dropped; it never reaches the request that caused the job.
func (w *Worker) Execute(ctx context.Context, job domain.Job) error {
	b := backoff.NewExponentialBackOff()
	if w.cfg.InitialInterval > 0 {
		b.InitialInterval = w.cfg.InitialInterval
	}
	if w.cfg.MaxInterval > 0 {
		b.MaxInterval = w.cfg.MaxInterval
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, w.handler.Handle(ctx, job)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(w.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.WarnContext(ctx, "job attempt failed",
				"job_id", job.ID, "kind", job.Kind, "attempt", attempts, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		w.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID, "kind", job.Kind, "event_id", job.EventID,
			"reservation_id", job.ReservationID, "attempts", attempts, "error", err)
		return err
	}
	return nil
}
