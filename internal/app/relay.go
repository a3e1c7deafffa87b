package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"consultations/internal/domain"
)

const (
	defaultRelayInterval  = time.Second
	defaultRelayBatchSize = 100
	defaultRelayAttempts  = 20
	maxRelayRetryDelay    = 5 * time.Minute
)

// RelayConfig controls how the outbox is drained.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts is how many failed dispatches an event gets before it is parked as failed.
	MaxAttempts int
}

// Relay moves committed outbox events onto the job queue.
type Relay struct {
	uow        domain.UnitOfWork
	dispatcher domain.EventDispatcher
	queue      domain.JobQueue
	clock      domain.Clock
	cfg        RelayConfig
	logger     *slog.Logger
}

// NewRelay creates a Relay. Zero config values fall back to defaults.
func NewRelay(uow domain.UnitOfWork, dispatcher domain.EventDispatcher, queue domain.JobQueue, clock domain.Clock, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultRelayInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultRelayBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultRelayAttempts
	}
	return &Relay{
		uow:        uow,
		dispatcher: dispatcher,
		queue:      queue,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started", "interval", r.cfg.PollInterval)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.drain(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// drain relays full batches until the backlog is empty.
func (r *Relay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
			return
		}
		if n < r.cfg.BatchSize {
			return
		}
	}
}

// RelayOnce claims one batch of due events, publishes their jobs and records
// the outcome of each. It returns the number of events claimed.
// A crash after publishing but before commit publishes the jobs again, so
// job handlers must tolerate duplicates.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var claimed int
	err := r.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := r.clock.Now()
		events, err := repos.Outbox.ClaimPending(ctx, now, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("claim outbox events: %w", err)
		}
		claimed = len(events)
		for _, e := range events {
			if err := r.publish(ctx, e, now); err != nil {
				attempt := e.Attempts + 1
				dead := attempt >= r.cfg.MaxAttempts
				r.logger.WarnContext(ctx, "outbox event dispatch failed",
					"event_id", e.ID, "type", e.Type, "attempt", attempt, "dead", dead, "error", err)
				if err := repos.Outbox.MarkFailed(ctx, e.ID, err.Error(), now.Add(relayRetryDelay(attempt)), dead); err != nil {
					return fmt.Errorf("mark outbox event %s failed: %w", e.ID, err)
				}
				continue
			}
			if err := repos.Outbox.MarkDispatched(ctx, e.ID, now); err != nil {
				return fmt.Errorf("mark outbox event %s dispatched: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

func (r *Relay) publish(ctx context.Context, e *domain.OutboxEvent, now time.Time) error {
	jobs, err := r.dispatcher.Dispatch(ctx, e)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	for _, job := range jobs {
		if err := r.queue.Publish(ctx, job, job.Delay(now)); err != nil {
			return fmt.Errorf("publish %s job: %w", job.Kind, err)
		}
	}
	r.logger.DebugContext(ctx, "outbox event relayed", "event_id", e.ID, "type", e.Type, "jobs", len(jobs))
	return nil
}

// relayRetryDelay is the wait before the next dispatch of an event that has
// failed attempt times: one second, doubling, capped at five minutes.
func relayRetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxRelayRetryDelay
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
