package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"consultations/internal/domain"
)

type jobHandler struct {
	reservations     domain.ReservationService
	reservationRepo  domain.ReservationRepository
	slotRepo         domain.SlotRepository
	notificationRepo domain.NotificationRepository
	directory        domain.UserDirectory
	emails           domain.EmailService
	sms              domain.SMSSender
	queue            domain.JobQueue
	clock            domain.Clock
	logger           *slog.Logger
}

// JobHandlerDeps groups the collaborators the job handler needs.
type JobHandlerDeps struct {
	Reservations     domain.ReservationService
	ReservationRepo  domain.ReservationRepository
	SlotRepo         domain.SlotRepository
	NotificationRepo domain.NotificationRepository
	Directory        domain.UserDirectory
	Emails           domain.EmailService
	SMS              domain.SMSSender
	// Queue re-arms auto_reject jobs that were delivered early.
	Queue  domain.JobQueue
	Clock  domain.Clock
	Logger *slog.Logger
}

// NewJobHandler returns a JobHandler routing each job to the handler for its kind.
// Errors wrapped with backoff.Permanent are not worth retrying.
func NewJobHandler(deps JobHandlerDeps) domain.JobHandler {
	return &jobHandler{
		reservations:     deps.Reservations,
		reservationRepo:  deps.ReservationRepo,
		slotRepo:         deps.SlotRepo,
		notificationRepo: deps.NotificationRepo,
		directory:        deps.Directory,
		emails:           deps.Emails,
		sms:              deps.SMS,
		queue:            deps.Queue,
		clock:            deps.Clock,
		logger:           deps.Logger,
	}
}

func (h *jobHandler) Handle(ctx context.Context, job domain.Job) error {
	switch job.Kind {
	case domain.JobInApp:
		return h.handleInApp(ctx, job)
	case domain.JobEmail:
		return h.handleEmail(ctx, job)
	case domain.JobSMS:
		return h.handleSMS(ctx, job)
	case domain.JobAutoReject:
		return h.handleAutoReject(ctx, job)
	}
	return backoff.Permanent(fmt.Errorf("unknown job kind %q", job.Kind))
}

func (h *jobHandler) handleInApp(ctx context.Context, job domain.Job) error {
	n := &domain.Notification{
		RecipientID: job.RecipientID,
		EventID:     job.EventID,
		Message:     job.Message,
		Category:    job.Category,
		CreatedAt:   h.clock.Now(),
	}
	created, err := h.notificationRepo.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if !created {
		h.logger.DebugContext(ctx, "notification already exists", "job_id", job.ID, "event_id", job.EventID, "recipient_id", job.RecipientID)
	}
	return nil
}

func (h *jobHandler) handleEmail(ctx context.Context, job domain.Job) error {
	res, err := h.reservationRepo.GetByID(ctx, job.ReservationID)
	if err != nil {
		return permanentIfNotFound(fmt.Errorf("get reservation: %w", err))
	}
	slot, err := h.slotRepo.GetByID(ctx, res.SlotID)
	if err != nil {
		return permanentIfNotFound(fmt.Errorf("get slot: %w", err))
	}
	student, err := h.directory.GetByID(ctx, res.StudentID)
	if err != nil {
		return permanentIfNotFound(fmt.Errorf("get student: %w", err))
	}
	lecturer, err := h.directory.GetByID(ctx, slot.LecturerID)
	if err != nil {
		return permanentIfNotFound(fmt.Errorf("get lecturer: %w", err))
	}
	recipient := student
	if job.RecipientID == lecturer.ID {
		recipient = lecturer
	}

	data := &domain.ReservationEmailData{
		Email:           recipient.Email,
		RecipientName:   recipient.FullName(),
		StudentName:     student.FullName(),
		LecturerName:    lecturer.FullName(),
		Subject:         slot.Subject,
		Location:        slot.Location,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		Topic:           res.Topic,
		RejectionReason: res.RejectionReason,
		AutoExpired:     res.RejectionReason == domain.AutoExpiryReason,
	}
	return h.emails.SendReservationEmail(ctx, job.Template, data)
}

func (h *jobHandler) handleSMS(ctx context.Context, job domain.Job) error {
	user, err := h.directory.GetByID(ctx, job.RecipientID)
	if err != nil {
		return permanentIfNotFound(fmt.Errorf("get recipient: %w", err))
	}
	phone, ok := user.E164Phone()
	if !ok {
		h.logger.InfoContext(ctx, "skipping sms, no usable phone number", "job_id", job.ID, "recipient_id", job.RecipientID)
		return nil
	}
	if err := h.sms.Send(ctx, phone, job.Message); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}

// handleAutoReject never rejects early: a job delivered before its due time
// is published again with the remaining delay.
func (h *jobHandler) handleAutoReject(ctx context.Context, job domain.Job) error {
	result, err := h.reservations.AutoReject(ctx, job.ReservationID)
	if err != nil {
		return fmt.Errorf("auto reject %s: %w", job.ReservationID, err)
	}
	if result.RetryAfter > 0 {
		next := job
		next.Attempt = 1
		next.NotBefore = h.clock.Now().Add(result.RetryAfter)
		if err := h.queue.Publish(ctx, next, result.RetryAfter); err != nil {
			return fmt.Errorf("re-arm auto reject: %w", err)
		}
		h.logger.InfoContext(ctx, "auto reject re-armed", "reservation_id", job.ReservationID, "retry_after", result.RetryAfter)
	}
	return nil
}

func permanentIfNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return backoff.Permanent(err)
	}
	return err
}
