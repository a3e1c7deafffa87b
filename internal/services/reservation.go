package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consultations/internal/domain"
)

type reservationService struct {
	uow             domain.UnitOfWork
	slotRepo        domain.SlotRepository
	reservationRepo domain.ReservationRepository
	clock           domain.Clock
	policy          domain.LifecyclePolicy
	logger          *slog.Logger
	contextTimeout  time.Duration
}

func NewReservationService(uow domain.UnitOfWork,
	slotRepo domain.SlotRepository,
	reservationRepo domain.ReservationRepository,
	clock domain.Clock,
	policy domain.LifecyclePolicy,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ReservationService {
	return &reservationService{
		uow:             uow,
		slotRepo:        slotRepo,
		reservationRepo: reservationRepo,
		clock:           clock,
		policy:          policy,
		logger:          logger,
		contextTimeout:  timeout,
	}
}

// Create books slotID for the student. The slot row is locked before the
// active reservations are counted, so concurrent requests for the last seat
// serialize on it.
func (s *reservationService) Create(ctx context.Context, actor domain.Identity, slotID string, draft domain.ReservationDraft) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// NewReservation repeats these checks; running them here rejects the
	// request before a transaction is opened and the slot row is locked.
	if actor.Role != domain.RoleStudent {
		return nil, domain.ErrPermissionDenied
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var created *domain.Reservation
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		slot, err := repos.Slots.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if _, err := repos.Reservations.FindActive(ctx, slotID, actor.UserID); err == nil {
			return domain.ErrDuplicateReservation
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("find active reservation: %w", err)
		}
		active, err := repos.Reservations.CountBySlot(ctx, slotID, domain.ActiveStatuses...)
		if err != nil {
			return fmt.Errorf("count reservations: %w", err)
		}
		res, ev, err := domain.NewReservation(slot, actor, draft, active, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Reservations.Create(ctx, res); err != nil {
			return err
		}
		ev.ReservationID = res.ID

		after, err := repos.Reservations.CountBySlot(ctx, slotID, domain.ActiveStatuses...)
		if err != nil {
			return fmt.Errorf("recount reservations: %w", err)
		}
		if after > slot.Capacity {
			return fmt.Errorf("%w: %d active reservations on slot %s with capacity %d", domain.ErrInvariantViolation, after, slotID, slot.Capacity)
		}
		if err := appendReservationEvent(ctx, repos, ev); err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *reservationService) Accept(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	return s.transition(ctx, id, func(ctx context.Context, repos domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error) {
		accepted, err := repos.Reservations.CountBySlot(ctx, slot.ID, domain.StatusAccepted)
		if err != nil {
			return domain.ReservationEvent{}, fmt.Errorf("count accepted: %w", err)
		}
		return res.Accept(slot, actor, accepted, now)
	})
}

func (s *reservationService) Reject(ctx context.Context, actor domain.Identity, id, reason string) (*domain.Reservation, error) {
	return s.transition(ctx, id, func(_ context.Context, _ domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error) {
		return res.Reject(slot, actor, reason, now)
	})
}

func (s *reservationService) Cancel(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	return s.transition(ctx, id, func(_ context.Context, _ domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error) {
		return res.Cancel(slot, actor, s.policy.CancelCutoff, now)
	})
}

func (s *reservationService) MarkOutcome(ctx context.Context, actor domain.Identity, id string, outcome domain.ReservationStatus) (*domain.Reservation, error) {
	return s.transition(ctx, id, func(_ context.Context, _ domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error) {
		return res.MarkOutcome(slot, actor, outcome, now)
	})
}

// AutoReject is safe to call any number of times: a reservation that is no
// longer pending, or no longer exists, is left alone.
func (s *reservationService) AutoReject(ctx context.Context, id string) (domain.AutoRejectResult, error) {
	var result domain.AutoRejectResult
	_, err := s.transition(ctx, id, func(_ context.Context, _ domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error) {
		result = domain.AutoRejectResult{}
		ev, err := res.AutoReject(slot, s.policy.ExpiryAfter, now)
		if errors.Is(err, domain.ErrExpiryNotDue) {
			result.RetryAfter = res.ExpiresAt(s.policy.ExpiryAfter).Sub(now)
		}
		if err == nil {
			result.Rejected = true
		}
		return ev, err
	})
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "reservation auto-rejected", "reservation_id", id)
		return result, nil
	case errors.Is(err, domain.ErrExpiryNotDue):
		return result, nil
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		return domain.AutoRejectResult{}, nil
	}
	return domain.AutoRejectResult{}, err
}

type transitionFunc func(ctx context.Context, repos domain.Repositories, slot *domain.Slot, res *domain.Reservation, now time.Time) (domain.ReservationEvent, error)

// transition locks the slot, then the reservation, applies fn and persists the
// new state together with its outbox event. Accepted capacity is re-checked
// after the write.
func (s *reservationService) transition(ctx context.Context, id string, fn transitionFunc) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var updated *domain.Reservation
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		current, err := repos.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		slot, err := repos.Slots.GetForUpdate(ctx, current.SlotID)
		if err != nil {
			return err
		}
		res, err := repos.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ev, err := fn(ctx, repos, slot, res, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Reservations.Update(ctx, res); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		accepted, err := repos.Reservations.CountBySlot(ctx, slot.ID, domain.StatusAccepted)
		if err != nil {
			return fmt.Errorf("recount accepted: %w", err)
		}
		if accepted > slot.Capacity {
			return fmt.Errorf("%w: %d accepted reservations on slot %s with capacity %d", domain.ErrInvariantViolation, accepted, slot.ID, slot.Capacity)
		}
		if err := appendReservationEvent(ctx, repos, ev); err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func appendReservationEvent(ctx context.Context, repos domain.Repositories, ev domain.ReservationEvent) error {
	outboxEvent, err := domain.NewReservationOutboxEvent(ev)
	if err != nil {
		return err
	}
	if err := repos.Outbox.Append(ctx, outboxEvent); err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (s *reservationService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.OwnedBy(actor) {
		return res, nil
	}
	slot, err := s.slotRepo.GetByID(ctx, res.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if !slot.OwnedBy(actor) {
		return nil, domain.ErrPermissionDenied
	}
	return res, nil
}

func (s *reservationService) ListForStudent(ctx context.Context, actor domain.Identity) ([]*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if actor.Role != domain.RoleStudent {
		return nil, domain.ErrPermissionDenied
	}
	list, err := s.reservationRepo.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list student reservations: %w", err)
	}
	return list, nil
}

func (s *reservationService) ListForLecturer(ctx context.Context, actor domain.Identity, filter domain.ReservationFilter, page domain.PaginationParams) (domain.Page[*domain.Reservation], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !canPublishSlots(actor) {
		return domain.Page[*domain.Reservation]{}, domain.ErrPermissionDenied
	}
	result, err := s.reservationRepo.ListByLecturer(ctx, actor.UserID, filter, page)
	if err != nil {
		return domain.Page[*domain.Reservation]{}, fmt.Errorf("list lecturer reservations: %w", err)
	}
	return result, nil
}
