package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// Email template names.
const (
	TemplateReservationNewLecturer = "reservation_new_lecturer"
	TemplateReservationNewStudent  = "reservation_new_student"
	TemplateReservationAccepted    = "reservation_accepted"
	TemplateReservationRejected    = "reservation_rejected"
)

// ReservationEmailData holds data for every reservation email template.
type ReservationEmailData struct {
	Email           string
	RecipientName   string
	StudentName     string
	LecturerName    string
	Subject         string
	Location        string
	StartTime       time.Time
	EndTime         time.Time
	Topic           string
	RejectionReason string
	AutoExpired     bool
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendReservationEmail(ctx context.Context, templateName string, data *ReservationEmailData) error
}
