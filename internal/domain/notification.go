package domain

import (
	"context"
	"time"
)

// NotificationCategory classifies an in-app notification.
type NotificationCategory string

const (
	CategoryNewReservation NotificationCategory = "new_reservation"
	CategoryConfirmation   NotificationCategory = "confirmation"
	CategoryStatusChange   NotificationCategory = "status_change"
	CategorySlotUpdate     NotificationCategory = "slot_update"
)

// Notification is an append-only in-app message. Only Seen is ever mutated.
// swagger:model Notification
type Notification struct {
	ID          string               `json:"id"`
	RecipientID string               `json:"recipient_id"`
	EventID     string               `json:"event_id,omitempty"`
	Message     string               `json:"message"`
	Category    NotificationCategory `json:"category"`
	Seen        bool                 `json:"seen"`
	CreatedAt   time.Time            `json:"created_at"`
}

// NotificationRepository defines the interface for notification storage.
type NotificationRepository interface {
	// Create inserts n unless a notification for the same (recipient, event, category)
	// already exists. created is false when the row was a duplicate.
	Create(ctx context.Context, n *Notification) (created bool, err error)
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, page PaginationParams) (Page[*Notification], error)
	CountUnseen(ctx context.Context, recipientID string) (int, error)
	MarkSeen(ctx context.Context, id string) error
}

// NotificationService exposes a user's in-app notifications.
type NotificationService interface {
	List(ctx context.Context, actor Identity, page PaginationParams) (Page[*Notification], error)
	UnseenCount(ctx context.Context, actor Identity) (int, error)
	MarkSeen(ctx context.Context, actor Identity, id string) error
}
