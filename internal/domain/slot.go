package domain

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
)

// Slot is a lecturer-published bookable time window.
// swagger:model Slot
type Slot struct {
	ID         string    `json:"id"`
	LecturerID string    `json:"lecturer_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Location   string    `json:"location"`
	Subject    string    `json:"subject"`
	Capacity   int       `json:"capacity"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSlot validates the window and returns an active Slot. ID is set by the repository on create.
func NewSlot(lecturerID string, start, end time.Time, capacity int, location, subject string, now time.Time) (*Slot, error) {
	if strings.TrimSpace(lecturerID) == "" {
		return nil, fmt.Errorf("%w: lecturer is required", ErrValidation)
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}
	return &Slot{
		LecturerID: lecturerID,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Location:   strings.TrimSpace(location),
		Subject:    strings.TrimSpace(subject),
		Capacity:   capacity,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// OwnedBy reports whether the identity may manage the slot.
func (s *Slot) OwnedBy(actor Identity) bool {
	return actor.IsAdmin() || (actor.UserID != "" && actor.UserID == s.LecturerID)
}

// RemainingCapacity is capacity minus the number of active reservations, floored at zero.
func (s *Slot) RemainingCapacity(active int) int {
	if rem := s.Capacity - active; rem > 0 {
		return rem
	}
	return 0
}

// SlotFilter narrows the public slot listing.
type SlotFilter struct {
	LecturerID string
	// After excludes slots starting before this instant.
	After time.Time
}

// SlotEvent is emitted when a lecturer changes a slot in a way students must hear about.
type SlotEvent struct {
	SlotID     string    `json:"slot_id"`
	LecturerID string    `json:"lecturer_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SlotRepository defines the interface for slot storage.
type SlotRepository interface {
	Create(ctx context.Context, slot *Slot) error
	GetByID(ctx context.Context, id string) (*Slot, error)
	// GetForUpdate reads the slot and locks its row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Slot, error)
	// ListPublic yields active slots matching filter ordered by start time.
	// Every range over the sequence runs a fresh query.
	ListPublic(ctx context.Context, filter SlotFilter) iter.Seq2[*Slot, error]
	ListByLecturer(ctx context.Context, lecturerID string, page PaginationParams) (Page[*Slot], error)
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateSlotInput carries the lecturer-supplied slot fields.
type CreateSlotInput struct {
	StartTime time.Time
	EndTime   time.Time
	Capacity  int
	Location  string
	Subject   string
}

// SlotService defines the slot registry operations.
type SlotService interface {
	CreateSlot(ctx context.Context, actor Identity, in CreateSlotInput) (*Slot, error)
	GetSlot(ctx context.Context, id string) (*Slot, error)
	ListPublicSlots(ctx context.Context, lecturerID string) iter.Seq2[*Slot, error]
	ListLecturerSlots(ctx context.Context, actor Identity, page PaginationParams) (Page[*Slot], error)
	Deactivate(ctx context.Context, actor Identity, slotID string) error
	DeleteSlot(ctx context.Context, actor Identity, slotID string) error
	RemainingCapacity(ctx context.Context, slotID string) (int, error)
}
