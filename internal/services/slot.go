package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"consultations/internal/domain"
)

type slotService struct {
	uow             domain.UnitOfWork
	slotRepo        domain.SlotRepository
	reservationRepo domain.ReservationRepository
	clock           domain.Clock
	contextTimeout  time.Duration
}

func NewSlotService(uow domain.UnitOfWork,
	slotRepo domain.SlotRepository,
	reservationRepo domain.ReservationRepository,
	clock domain.Clock,
	timeout time.Duration,
) domain.SlotService {
	return &slotService{
		uow:             uow,
		slotRepo:        slotRepo,
		reservationRepo: reservationRepo,
		clock:           clock,
		contextTimeout:  timeout,
	}
}

func canPublishSlots(actor domain.Identity) bool {
	return actor.Role == domain.RoleLecturer || actor.IsAdmin()
}

func (s *slotService) CreateSlot(ctx context.Context, actor domain.Identity, in domain.CreateSlotInput) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !canPublishSlots(actor) {
		return nil, domain.ErrPermissionDenied
	}
	slot, err := domain.NewSlot(actor.UserID, in.StartTime, in.EndTime, in.Capacity, in.Location, in.Subject, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

func (s *slotService) GetSlot(ctx context.Context, id string) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.slotRepo.GetByID(ctx, id)
}

// ListPublicSlots is lazy; the query runs when the caller ranges over it, so no timeout is applied here.
func (s *slotService) ListPublicSlots(ctx context.Context, lecturerID string) iter.Seq2[*domain.Slot, error] {
	return s.slotRepo.ListPublic(ctx, domain.SlotFilter{LecturerID: lecturerID, After: s.clock.Now()})
}

func (s *slotService) ListLecturerSlots(ctx context.Context, actor domain.Identity, page domain.PaginationParams) (domain.Page[*domain.Slot], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !canPublishSlots(actor) {
		return domain.Page[*domain.Slot]{}, domain.ErrPermissionDenied
	}
	result, err := s.slotRepo.ListByLecturer(ctx, actor.UserID, page)
	if err != nil {
		return domain.Page[*domain.Slot]{}, fmt.Errorf("list lecturer slots: %w", err)
	}
	return result, nil
}

// Deactivate is idempotent: an already inactive slot emits no second event.
func (s *slotService) Deactivate(ctx context.Context, actor domain.Identity, slotID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		slot, err := repos.Slots.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.OwnedBy(actor) {
			return domain.ErrPermissionDenied
		}
		if !slot.IsActive {
			return nil
		}
		now := s.clock.Now()
		if err := repos.Slots.SetActive(ctx, slotID, false, now); err != nil {
			return fmt.Errorf("deactivate slot: %w", err)
		}
		ev, err := domain.NewSlotOutboxEvent(domain.EventSlotDeactivated, domain.SlotEvent{
			SlotID:     slot.ID,
			LecturerID: slot.LecturerID,
			OccurredAt: now,
		})
		if err != nil {
			return err
		}
		if err := repos.Outbox.Append(ctx, ev); err != nil {
			return fmt.Errorf("append outbox event: %w", err)
		}
		return nil
	})
}

func (s *slotService) DeleteSlot(ctx context.Context, actor domain.Identity, slotID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		slot, err := repos.Slots.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.OwnedBy(actor) {
			return domain.ErrPermissionDenied
		}
		if err := repos.Slots.Delete(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
}

func (s *slotService) RemainingCapacity(ctx context.Context, slotID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	active, err := s.reservationRepo.CountBySlot(ctx, slotID, domain.ActiveStatuses...)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return slot.RemainingCapacity(active), nil
}
