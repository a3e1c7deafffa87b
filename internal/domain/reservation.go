package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending        ReservationStatus = "pending"
	StatusAccepted       ReservationStatus = "accepted"
	StatusRejected       ReservationStatus = "rejected"
	StatusCancelled      ReservationStatus = "cancelled"
	StatusCompleted      ReservationStatus = "completed"
	StatusNoShowStudent  ReservationStatus = "no_show_student"
	StatusNoShowLecturer ReservationStatus = "no_show_lecturer"
)

// ActiveStatuses count against slot capacity at creation time.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusAccepted}

// IsActive reports whether s is pending or accepted.
func (s ReservationStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// IsOutcome reports whether s is one of the post-meeting outcomes.
func (s ReservationStatus) IsOutcome() bool {
	switch s {
	case StatusCompleted, StatusNoShowStudent, StatusNoShowLecturer:
		return true
	}
	return false
}

// ParseReservationStatus normalizes a status string.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
	st := ReservationStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled,
		StatusCompleted, StatusNoShowStudent, StatusNoShowLecturer:
		return st, true
	}
	return "", false
}

const (
	// AutoExpiryReason is the rejection reason recorded by the expiry job.
	AutoExpiryReason = "automatic_expiry"

	DefaultExpiryAfter  = 24 * time.Hour
	DefaultCancelCutoff = time.Hour

	maxTopicLength = 500
	maxNotesLength = 4000
	maxAttachments = 5
)

// ErrExpiryNotDue is returned by AutoReject when the reservation has not been pending long enough.
var ErrExpiryNotDue = errors.New("reservation expiry not due yet")

// LifecyclePolicy holds the time-based rules of the state machine.
type LifecyclePolicy struct {
	// ExpiryAfter is how long a reservation may stay pending before auto-rejection.
	ExpiryAfter time.Duration
	// CancelCutoff is how long before the slot start a student may still cancel.
	CancelCutoff time.Duration
}

// DefaultLifecyclePolicy returns the 24h expiry and 1h cancellation cutoff.
func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{ExpiryAfter: DefaultExpiryAfter, CancelCutoff: DefaultCancelCutoff}
}

// Reservation is one student's claim on one slot.
// swagger:model Reservation
type Reservation struct {
	ID              string            `json:"id"`
	SlotID          string            `json:"slot_id"`
	StudentID       string            `json:"student_id"`
	Status          ReservationStatus `json:"status"`
	Topic           string            `json:"topic"`
	Notes           string            `json:"notes"`
	Attachments     []string          `json:"attachments"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	AcceptedAt      *time.Time        `json:"accepted_at,omitempty"`
	AcceptedBy      *string           `json:"accepted_by,omitempty"`
}

// ReservationEvent describes a committed lifecycle change. From is empty for creation.
type ReservationEvent struct {
	ReservationID string            `json:"reservation_id"`
	SlotID        string            `json:"slot_id"`
	StudentID     string            `json:"student_id"`
	LecturerID    string            `json:"lecturer_id"`
	From          ReservationStatus `json:"from,omitempty"`
	To            ReservationStatus `json:"to"`
	ActorID       string            `json:"actor_id,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	CreatedAt     time.Time         `json:"reservation_created_at"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// IsCreation reports whether the event records a new reservation.
func (e ReservationEvent) IsCreation() bool { return e.From == "" }

// ReservationDraft is the student-supplied part of a new reservation.
type ReservationDraft struct {
	Topic       string
	Notes       string
	Attachments []string
}

// Validate checks field sizes and normalizes whitespace.
func (d *ReservationDraft) Validate() error {
	d.Topic = strings.TrimSpace(d.Topic)
	d.Notes = strings.TrimSpace(d.Notes)
	if len(d.Topic) > maxTopicLength {
		return fmt.Errorf("%w: topic exceeds %d characters", ErrValidation, maxTopicLength)
	}
	if len(d.Notes) > maxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxNotesLength)
	}
	if len(d.Attachments) > maxAttachments {
		return fmt.Errorf("%w: at most %d attachments", ErrValidation, maxAttachments)
	}
	handles := make([]string, 0, len(d.Attachments))
	for _, h := range d.Attachments {
		h = strings.TrimSpace(h)
		if h == "" {
			return fmt.Errorf("%w: empty attachment handle", ErrValidation)
		}
		handles = append(handles, h)
	}
	d.Attachments = handles
	return nil
}

// NewReservation applies the create transition. activeCount is the number of
// pending and accepted reservations on slot, read under the slot lock.
func NewReservation(slot *Slot, student Identity, draft ReservationDraft, activeCount int, now time.Time) (*Reservation, ReservationEvent, error) {
	if student.Role != RoleStudent {
		return nil, ReservationEvent{}, ErrPermissionDenied
	}
	if err := draft.Validate(); err != nil {
		return nil, ReservationEvent{}, err
	}
	if !slot.IsActive {
		return nil, ReservationEvent{}, ErrSlotInactive
	}
	if !slot.StartTime.After(now) {
		return nil, ReservationEvent{}, ErrPastSlot
	}
	if activeCount >= slot.Capacity {
		return nil, ReservationEvent{}, ErrSlotFull
	}
	attachments := draft.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	r := &Reservation{
		SlotID:      slot.ID,
		StudentID:   student.UserID,
		Status:      StatusPending,
		Topic:       draft.Topic,
		Notes:       draft.Notes,
		Attachments: attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ev := ReservationEvent{
		SlotID:     slot.ID,
		StudentID:  student.UserID,
		LecturerID: slot.LecturerID,
		To:         StatusPending,
		ActorID:    student.UserID,
		CreatedAt:  now,
		OccurredAt: now,
	}
	return r, ev, nil
}

// OwnedBy reports whether the identity is the reserving student (or an admin).
func (r *Reservation) OwnedBy(actor Identity) bool {
	return actor.IsAdmin() || (actor.UserID != "" && actor.UserID == r.StudentID)
}

// Accept moves a pending reservation to accepted. acceptedCount is the number
// of accepted reservations on slot, read under the slot lock.
func (r *Reservation) Accept(slot *Slot, actor Identity, acceptedCount int, now time.Time) (ReservationEvent, error) {
	if !slot.OwnedBy(actor) {
		return ReservationEvent{}, ErrPermissionDenied
	}
	if r.Status != StatusPending {
		return ReservationEvent{}, ErrInvalidTransition
	}
	if acceptedCount >= slot.Capacity {
		return ReservationEvent{}, ErrCapacityExceeded
	}
	by := actor.UserID
	at := now
	r.AcceptedAt = &at
	r.AcceptedBy = &by
	return r.transition(slot, StatusAccepted, actor.UserID, "", now), nil
}

// Reject moves a pending reservation to rejected and records reason.
func (r *Reservation) Reject(slot *Slot, actor Identity, reason string, now time.Time) (ReservationEvent, error) {
	if !slot.OwnedBy(actor) {
		return ReservationEvent{}, ErrPermissionDenied
	}
	if r.Status != StatusPending {
		return ReservationEvent{}, ErrInvalidTransition
	}
	reason = strings.TrimSpace(reason)
	r.RejectionReason = reason
	return r.transition(slot, StatusRejected, actor.UserID, reason, now), nil
}

// Cancel moves an active reservation to cancelled while the slot start is
// still more than cutoff away.
func (r *Reservation) Cancel(slot *Slot, actor Identity, cutoff time.Duration, now time.Time) (ReservationEvent, error) {
	if !r.OwnedBy(actor) {
		return ReservationEvent{}, ErrPermissionDenied
	}
	if !r.Status.IsActive() {
		return ReservationEvent{}, ErrInvalidTransition
	}
	if !now.Before(slot.StartTime.Add(-cutoff)) {
		return ReservationEvent{}, ErrTooLateToCancel
	}
	return r.transition(slot, StatusCancelled, actor.UserID, "", now), nil
}

// AutoReject rejects a reservation that stayed pending for expiryAfter.
// It returns ErrInvalidTransition when the reservation is no longer pending
// and ErrExpiryNotDue when it is too early.
func (r *Reservation) AutoReject(slot *Slot, expiryAfter time.Duration, now time.Time) (ReservationEvent, error) {
	if r.Status != StatusPending {
		return ReservationEvent{}, ErrInvalidTransition
	}
	if now.Before(r.ExpiresAt(expiryAfter)) {
		return ReservationEvent{}, ErrExpiryNotDue
	}
	r.RejectionReason = AutoExpiryReason
	return r.transition(slot, StatusRejected, "", AutoExpiryReason, now), nil
}

// ExpiresAt is the instant the reservation becomes eligible for auto-rejection.
func (r *Reservation) ExpiresAt(expiryAfter time.Duration) time.Time {
	return r.CreatedAt.Add(expiryAfter)
}

// MarkOutcome records how an accepted meeting went, once the slot has ended.
func (r *Reservation) MarkOutcome(slot *Slot, actor Identity, outcome ReservationStatus, now time.Time) (ReservationEvent, error) {
	if !slot.OwnedBy(actor) {
		return ReservationEvent{}, ErrPermissionDenied
	}
	if !outcome.IsOutcome() {
		return ReservationEvent{}, fmt.Errorf("%w: unknown outcome %q", ErrValidation, outcome)
	}
	if r.Status != StatusAccepted {
		return ReservationEvent{}, ErrInvalidTransition
	}
	if now.Before(slot.EndTime) {
		return ReservationEvent{}, ErrMeetingNotYetOver
	}
	return r.transition(slot, outcome, actor.UserID, "", now), nil
}

func (r *Reservation) transition(slot *Slot, to ReservationStatus, actorID, reason string, now time.Time) ReservationEvent {
	from := r.Status
	r.Status = to
	r.UpdatedAt = now
	return ReservationEvent{
		ReservationID: r.ID,
		SlotID:        r.SlotID,
		StudentID:     r.StudentID,
		LecturerID:    slot.LecturerID,
		From:          from,
		To:            to,
		ActorID:       actorID,
		Reason:        reason,
		CreatedAt:     r.CreatedAt,
		OccurredAt:    now,
	}
}

// ReservationFilter narrows lecturer-side listings. Empty Status matches all.
type ReservationFilter struct {
	Status ReservationStatus
}

// ReservationRepository defines the interface for reservation storage.
type ReservationRepository interface {
	// Create inserts r and sets r.ID. A second active reservation for the
	// same (slot, student) fails with ErrDuplicateReservation.
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	// GetForUpdate reads the reservation and locks its row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Reservation, error)
	// Update persists status, rejection reason, acceptance fields and updated_at.
	Update(ctx context.Context, r *Reservation) error
	CountBySlot(ctx context.Context, slotID string, statuses ...ReservationStatus) (int, error)
	FindActive(ctx context.Context, slotID, studentID string) (*Reservation, error)
	ListByStudent(ctx context.Context, studentID string) ([]*Reservation, error)
	ListByLecturer(ctx context.Context, lecturerID string, filter ReservationFilter, page PaginationParams) (Page[*Reservation], error)
	ListActiveBySlot(ctx context.Context, slotID string) ([]*Reservation, error)
	// ListExpiredPending returns ids of pending reservations created before cutoff, oldest first.
	ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error)
}

// AutoRejectResult tells the expiry job what happened.
type AutoRejectResult struct {
	Rejected bool
	// RetryAfter is set when the job fired early and must be re-armed.
	RetryAfter time.Duration
}

// ReservationService defines the reservation lifecycle operations.
type ReservationService interface {
	Create(ctx context.Context, actor Identity, slotID string, draft ReservationDraft) (*Reservation, error)
	Accept(ctx context.Context, actor Identity, id string) (*Reservation, error)
	Reject(ctx context.Context, actor Identity, id, reason string) (*Reservation, error)
	Cancel(ctx context.Context, actor Identity, id string) (*Reservation, error)
	MarkOutcome(ctx context.Context, actor Identity, id string, outcome ReservationStatus) (*Reservation, error)
	AutoReject(ctx context.Context, id string) (AutoRejectResult, error)
	Get(ctx context.Context, actor Identity, id string) (*Reservation, error)
	ListForStudent(ctx context.Context, actor Identity) ([]*Reservation, error)
	ListForLecturer(ctx context.Context, actor Identity, filter ReservationFilter, page PaginationParams) (Page[*Reservation], error)
}
