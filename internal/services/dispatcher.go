package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consultations/internal/domain"
)

const messageTimeLayout = "2006-01-02 15:04"

// DispatcherConfig controls which channels the dispatcher fans out to.
type DispatcherConfig struct {
	SMSEnabled  bool
	ExpiryAfter time.Duration
}

type dispatcher struct {
	slotRepo        domain.SlotRepository
	reservationRepo domain.ReservationRepository
	directory       domain.UserDirectory
	config          DispatcherConfig
	logger          *slog.Logger
}

// NewDispatcher returns an EventDispatcher that maps committed outbox events to jobs.
func NewDispatcher(slotRepo domain.SlotRepository,
	reservationRepo domain.ReservationRepository,
	directory domain.UserDirectory,
	config DispatcherConfig,
	logger *slog.Logger,
) domain.EventDispatcher {
	if config.ExpiryAfter <= 0 {
		config.ExpiryAfter = domain.DefaultExpiryAfter
	}
	return &dispatcher{
		slotRepo:        slotRepo,
		reservationRepo: reservationRepo,
		directory:       directory,
		config:          config,
		logger:          logger,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, e *domain.OutboxEvent) ([]domain.Job, error) {
	switch e.Type {
	case domain.EventReservationCreated:
		ev, err := e.ReservationEvent()
		if err != nil {
			return nil, err
		}
		return d.onReservationCreated(ctx, e.ID, ev)
	case domain.EventReservationStatusChanged:
		ev, err := e.ReservationEvent()
		if err != nil {
			return nil, err
		}
		return d.onStatusChanged(ctx, e.ID, ev)
	case domain.EventSlotDeactivated:
		ev, err := e.SlotEvent()
		if err != nil {
			return nil, err
		}
		return d.onSlotDeactivated(ctx, e.ID, ev)
	}
	d.logger.WarnContext(ctx, "unknown outbox event type", "event_id", e.ID, "type", e.Type)
	return nil, nil
}

func (d *dispatcher) onReservationCreated(ctx context.Context, eventID string, ev domain.ReservationEvent) ([]domain.Job, error) {
	slot, student, lecturer, err := d.loadParties(ctx, ev)
	if errors.Is(err, domain.ErrNotFound) {
		// The slot was deleted before the event was relayed; nothing is left to notify about.
		d.logger.InfoContext(ctx, "skipping event for missing reservation parties", "event_id", eventID, "reservation_id", ev.ReservationID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	when := slot.StartTime.Format(messageTimeLayout)

	jobs := []domain.Job{
		inAppJob(eventID, ev.ReservationID, lecturer.ID, domain.CategoryNewReservation,
			fmt.Sprintf("New reservation from %s for %s.", student.FullName(), when)),
		inAppJob(eventID, ev.ReservationID, student.ID, domain.CategoryConfirmation,
			fmt.Sprintf("Your reservation with %s on %s has been received.", lecturer.FullName(), when)),
		emailJob(eventID, ev.ReservationID, lecturer.ID, domain.TemplateReservationNewLecturer),
		emailJob(eventID, ev.ReservationID, student.ID, domain.TemplateReservationNewStudent),
	}
	jobs = d.appendSMS(jobs, eventID, ev.ReservationID, lecturer,
		fmt.Sprintf("New consultation request from %s for %s.", student.FullName(), when))
	jobs = d.appendSMS(jobs, eventID, ev.ReservationID, student,
		fmt.Sprintf("Your consultation request with %s for %s was received.", lecturer.FullName(), when))

	expiry := domain.NewJob(domain.JobAutoReject, eventID)
	expiry.ReservationID = ev.ReservationID
	expiry.NotBefore = ev.CreatedAt.Add(d.config.ExpiryAfter)
	return append(jobs, expiry), nil
}

// onStatusChanged notifies the student about accept and reject decisions only.
func (d *dispatcher) onStatusChanged(ctx context.Context, eventID string, ev domain.ReservationEvent) ([]domain.Job, error) {
	var template, message string
	switch ev.To {
	case domain.StatusAccepted:
		template = domain.TemplateReservationAccepted
	case domain.StatusRejected:
		template = domain.TemplateReservationRejected
	default:
		return nil, nil
	}

	slot, student, lecturer, err := d.loadParties(ctx, ev)
	if errors.Is(err, domain.ErrNotFound) {
		d.logger.InfoContext(ctx, "skipping event for missing reservation parties", "event_id", eventID, "reservation_id", ev.ReservationID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	when := slot.StartTime.Format(messageTimeLayout)

	switch {
	case ev.To == domain.StatusAccepted:
		message = fmt.Sprintf("%s accepted your reservation for %s.", lecturer.FullName(), when)
	case ev.Reason == domain.AutoExpiryReason:
		message = fmt.Sprintf("Your reservation with %s for %s expired without a response.", lecturer.FullName(), when)
	case ev.Reason != "":
		message = fmt.Sprintf("%s rejected your reservation for %s: %s", lecturer.FullName(), when, ev.Reason)
	default:
		message = fmt.Sprintf("%s rejected your reservation for %s.", lecturer.FullName(), when)
	}

	jobs := []domain.Job{
		inAppJob(eventID, ev.ReservationID, student.ID, domain.CategoryStatusChange, message),
		emailJob(eventID, ev.ReservationID, student.ID, template),
	}
	return d.appendSMS(jobs, eventID, ev.ReservationID, student, message), nil
}

func (d *dispatcher) onSlotDeactivated(ctx context.Context, eventID string, ev domain.SlotEvent) ([]domain.Job, error) {
	slot, err := d.slotRepo.GetByID(ctx, ev.SlotID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	holders, err := d.reservationRepo.ListActiveBySlot(ctx, ev.SlotID)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	message := fmt.Sprintf("The consultation slot on %s was withdrawn by the lecturer.", slot.StartTime.Format(messageTimeLayout))
	jobs := make([]domain.Job, 0, len(holders))
	for _, r := range holders {
		jobs = append(jobs, inAppJob(eventID, r.ID, r.StudentID, domain.CategorySlotUpdate, message))
	}
	return jobs, nil
}

func (d *dispatcher) loadParties(ctx context.Context, ev domain.ReservationEvent) (*domain.Slot, *domain.User, *domain.User, error) {
	slot, err := d.slotRepo.GetByID(ctx, ev.SlotID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get slot: %w", err)
	}
	student, err := d.directory.GetByID(ctx, ev.StudentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get student: %w", err)
	}
	lecturer, err := d.directory.GetByID(ctx, slot.LecturerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get lecturer: %w", err)
	}
	return slot, student, lecturer, nil
}

func (d *dispatcher) appendSMS(jobs []domain.Job, eventID, reservationID string, recipient *domain.User, message string) []domain.Job {
	if !d.config.SMSEnabled {
		return jobs
	}
	if _, ok := recipient.E164Phone(); !ok {
		return jobs
	}
	job := domain.NewJob(domain.JobSMS, eventID)
	job.ReservationID = reservationID
	job.RecipientID = recipient.ID
	job.Message = message
	return append(jobs, job)
}

func inAppJob(eventID, reservationID, recipientID string, category domain.NotificationCategory, message string) domain.Job {
	job := domain.NewJob(domain.JobInApp, eventID)
	job.ReservationID = reservationID
	job.RecipientID = recipientID
	job.Category = category
	job.Message = message
	return job
}

func emailJob(eventID, reservationID, recipientID, template string) domain.Job {
	job := domain.NewJob(domain.JobEmail, eventID)
	job.ReservationID = reservationID
	job.RecipientID = recipientID
	job.Template = template
	return job
}
