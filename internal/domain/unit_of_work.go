package domain

import "context"

// Repositories is the set of repositories bound to one transaction.
type Repositories struct {
	Slots         SlotRepository
	Reservations  ReservationRepository
	Outbox        OutboxRepository
	Notifications NotificationRepository
}

// UnitOfWork runs fn inside a single transaction. fn's repositories are bound to
// that transaction; a nil return commits, anything else rolls back. Do may call
// fn more than once when the database reports a serialization failure, so fn
// must not have side effects outside the repositories.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
