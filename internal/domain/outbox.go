package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEventType names what happened to an aggregate.
type OutboxEventType string

const (
	EventReservationCreated       OutboxEventType = "reservation.created"
	EventReservationStatusChanged OutboxEventType = "reservation.status_changed"
	EventSlotDeactivated          OutboxEventType = "slot.deactivated"
)

// OutboxStatus is the delivery state of an outbox row.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxDispatched OutboxStatus = "dispatched"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxEvent is written in the same transaction as the state change it records
// and relayed to the job queue after commit.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	Type          OutboxEventType
	Payload       json.RawMessage
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

// NewReservationOutboxEvent wraps a ReservationEvent. Creation events get
// EventReservationCreated, everything else EventReservationStatusChanged.
func NewReservationOutboxEvent(ev ReservationEvent) (*OutboxEvent, error) {
	typ := EventReservationStatusChanged
	if ev.IsCreation() {
		typ = EventReservationCreated
	}
	return newOutboxEvent(ev.ReservationID, typ, ev, ev.OccurredAt)
}

// NewSlotOutboxEvent wraps a SlotEvent.
func NewSlotOutboxEvent(typ OutboxEventType, ev SlotEvent) (*OutboxEvent, error) {
	return newOutboxEvent(ev.SlotID, typ, ev, ev.OccurredAt)
}

func newOutboxEvent(aggregateID string, typ OutboxEventType, payload any, now time.Time) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &OutboxEvent{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		Type:          typ,
		Payload:       raw,
		Status:        OutboxPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}

// ReservationEvent decodes the payload of a reservation event.
func (e *OutboxEvent) ReservationEvent() (ReservationEvent, error) {
	var ev ReservationEvent
	if err := json.Unmarshal(e.Payload, &ev); err != nil {
		return ReservationEvent{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return ev, nil
}

// SlotEvent decodes the payload of a slot event.
func (e *OutboxEvent) SlotEvent() (SlotEvent, error) {
	var ev SlotEvent
	if err := json.Unmarshal(e.Payload, &ev); err != nil {
		return SlotEvent{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return ev, nil
}

// OutboxRepository defines the interface for outbox storage.
type OutboxRepository interface {
	Append(ctx context.Context, e *OutboxEvent) error
	// ClaimPending locks up to limit due pending rows, skipping rows held by
	// another relay. Must run inside a transaction.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	// MarkFailed records err and schedules the next attempt. When dead is true the
	// row moves to OutboxFailed and is never retried.
	MarkFailed(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time, dead bool) error
}

// EventDispatcher turns a committed outbox event into jobs.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e *OutboxEvent) ([]Job, error)
}
