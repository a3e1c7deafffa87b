package domain

import "errors"

// Sentinel errors shared by services, repositories and the HTTP layer.
// Callers wrap them with fmt.Errorf("...: %w", err) and match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")

	// Slot registry.
	ErrInvalidRange = errors.New("slot start must be before end")
	ErrSlotInactive = errors.New("slot is inactive")
	ErrSlotFull     = errors.New("slot is full")
	ErrPastSlot     = errors.New("slot has already started")

	// Reservation lifecycle.
	ErrDuplicateReservation = errors.New("an active reservation for this slot already exists")
	ErrInvalidTransition    = errors.New("invalid reservation status transition")
	ErrCapacityExceeded     = errors.New("slot accepted capacity exceeded")
	ErrTooLateToCancel      = errors.New("too late to cancel reservation")
	ErrMeetingNotYetOver    = errors.New("meeting has not ended yet")

	// ErrInvariantViolation aborts the enclosing transaction. It must never
	// surface if the guards hold.
	ErrInvariantViolation = errors.New("reservation invariant violated")
)
