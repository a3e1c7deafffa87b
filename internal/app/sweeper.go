package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"consultations/internal/domain"
)

const defaultSweepBatch = 200

// SweeperConfig controls the auto-expiry backstop.
type SweeperConfig struct {
	Interval    time.Duration
	ExpiryAfter time.Duration
	BatchSize   int
}

// Sweeper periodically rejects pending reservations whose expiry job was lost.
type Sweeper struct {
	reservationRepo domain.ReservationRepository
	reservations    domain.ReservationService
	clock           domain.Clock
	cfg             SweeperConfig
	logger          *slog.Logger
}

func NewSweeper(reservationRepo domain.ReservationRepository, reservations domain.ReservationService, clock domain.Clock, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.ExpiryAfter <= 0 {
		cfg.ExpiryAfter = domain.DefaultExpiryAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultSweepBatch
	}
	return &Sweeper{
		reservationRepo: reservationRepo,
		reservations:    reservations,
		clock:           clock,
		cfg:             cfg,
		logger:          logger,
	}
}

// Run sweeps once at start and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("expiry sweeper started", "interval", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := s.SweepOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
		} else if n > 0 {
			s.logger.InfoContext(ctx, "expiry sweep rejected reservations", "count", n)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce auto-rejects one batch of overdue pending reservations and
// returns how many were rejected. A failure on one reservation is logged and
// does not stop the batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.cfg.ExpiryAfter)
	ids, err := s.reservationRepo.ListExpiredPending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}
	rejected := 0
	for _, id := range ids {
		result, err := s.reservations.AutoReject(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper auto reject failed", "reservation_id", id, "error", err)
			continue
		}
		if result.Rejected {
			rejected++
		}
	}
	return rejected, nil
}
