package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"consultations/internal/domain"
)

// maxTxAttempts bounds retries on serialization failures and deadlocks.
const maxTxAttempts = 3

type unitOfWork struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewUnitOfWork returns a UnitOfWork running each call in a read-committed transaction.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger) domain.UnitOfWork {
	return &unitOfWork{DB: db, logger: logger}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := u.runTx(ctx, fn)
		if err != nil && !isRetryableTxError(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			u.logger.WarnContext(ctx, "retrying transaction", "error", err, "next", next)
		}),
	)
	return err
}

func (u *unitOfWork) runTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	tx, err := u.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				u.logger.ErrorContext(ctx, "rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(ctx, txRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func txRepositories(tx *sql.Tx) domain.Repositories {
	return domain.Repositories{
		Slots:         &slotRepository{DB: tx},
		Reservations:  &reservationRepository{DB: tx},
		Outbox:        &outboxRepository{DB: tx},
		Notifications: &notificationRepository{DB: tx},
	}
}
