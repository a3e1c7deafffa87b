package services

import (
	"context"
	"fmt"
	"log/slog"

	"consultations/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendReservationEmail renders templateName with data and sends it to data.Email.
func (s *emailService) SendReservationEmail(ctx context.Context, templateName string, data *domain.ReservationEmailData) error {
	if data == nil {
		return fmt.Errorf("reservation email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", templateName, "to", data.Email)
	return nil
}
