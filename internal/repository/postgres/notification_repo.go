package postgres

import (
	"context"
	"database/sql"
	"errors"

	"consultations/internal/domain"
)

type notificationRepository struct {
	DB dbtx
}

func NewNotificationRepository(db *sql.DB) domain.NotificationRepository {
	return &notificationRepository{DB: db}
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var eventID sql.NullString
	var category string
	if err := row.Scan(&n.ID, &n.RecipientID, &eventID, &n.Message, &category, &n.Seen, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.EventID = eventID.String
	n.Category = domain.NotificationCategory(category)
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (recipient_id, event_id, message, category, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (recipient_id, event_id, category) DO NOTHING
		RETURNING id
	`
	var eventID sql.NullString
	if n.EventID != "" {
		eventID = sql.NullString{String: n.EventID, Valid: true}
	}
	err := r.DB.QueryRowContext(ctx, query, n.RecipientID, eventID, n.Message, string(n.Category), n.Seen, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `
		SELECT id, recipient_id, event_id, message, category, seen, created_at
		FROM notifications
		WHERE id = $1
	`
	n, err := scanNotification(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, page domain.PaginationParams) (domain.Page[*domain.Notification], error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID).Scan(&total); err != nil {
		return domain.Page[*domain.Notification]{}, err
	}
	query := `
		SELECT id, recipient_id, event_id, message, category, seen, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, recipientID, limitArg(page), page.Offset())
	if err != nil {
		return domain.Page[*domain.Notification]{}, err
	}
	defer rows.Close()
	items := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return domain.Page[*domain.Notification]{}, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[*domain.Notification]{}, err
	}
	return domain.Page[*domain.Notification]{Items: items, Total: total}, nil
}

func (r *notificationRepository) CountUnseen(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT seen`, recipientID).Scan(&n)
	return n, err
}

func (r *notificationRepository) MarkSeen(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET seen = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
