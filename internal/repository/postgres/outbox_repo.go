package postgres

import (
	"context"
	"database/sql"
	"time"

	"consultations/internal/domain"
)

type outboxRepository struct {
	DB dbtx
}

func NewOutboxRepository(db *sql.DB) domain.OutboxRepository {
	return &outboxRepository{DB: db}
}

func (r *outboxRepository) Append(ctx context.Context, e *domain.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_id, type, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.DB.ExecContext(ctx, query, e.ID, e.AggregateID, string(e.Type), []byte(e.Payload),
		string(e.Status), e.Attempts, e.NextAttemptAt, e.CreatedAt)
	return err
}

func (r *outboxRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, type, payload, status, attempts, next_attempt_at, last_error, created_at, dispatched_at
		FROM outbox_events
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*domain.OutboxEvent
	for rows.Next() {
		e := &domain.OutboxEvent{}
		var typ, status string
		var payload []byte
		var dispatchedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.AggregateID, &typ, &payload, &status, &e.Attempts,
			&e.NextAttemptAt, &e.LastError, &e.CreatedAt, &dispatchedAt); err != nil {
			return nil, err
		}
		e.Type = domain.OutboxEventType(typ)
		e.Status = domain.OutboxStatus(status)
		e.Payload = payload
		if dispatchedAt.Valid {
			e.DispatchedAt = &dispatchedAt.Time
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE outbox_events SET status = 'dispatched', attempts = attempts + 1, dispatched_at = $1, last_error = '' WHERE id = $2`,
		at, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time, dead bool) error {
	status := domain.OutboxPending
	if dead {
		status = domain.OutboxFailed
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE outbox_events SET status = $1, attempts = attempts + 1, last_error = $2, next_attempt_at = $3 WHERE id = $4`,
		string(status), errMsg, nextAttemptAt, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
