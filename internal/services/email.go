package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"campusfest/internal/domain"
)

type emailService struct {
	userRepo domain.UserRepository
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that renders the notification's template and sends it through mailer.
func NewEmailService(userRepo domain.UserRepository, mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{userRepo: userRepo, mailer: mailer, renderer: renderer, logger: logger}
}

func (s *emailService) Deliver(ctx context.Context, n domain.Notification) error {
	user, err := s.userRepo.GetByID(ctx, n.ParticipantID)
	if err != nil {
		return fmt.Errorf("get participant %s: %w", n.ParticipantID, err)
	}
	data := domain.RegistrationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventName:  n.EventName,
		Status:     string(n.Status),
		TicketID:   n.TicketID,
		TeamName:   n.TeamName,
		InviteCode: n.InviteCode,
	}
	if n.TotalCost > 0 {
		data.TotalCost = strconv.FormatInt(n.TotalCost, 10)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(string(n.Kind), data)
	if err != nil {
		return fmt.Errorf("render %s template: %w", n.Kind, err)
	}
	if err := s.mailer.Send(user.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %s email: %w", n.Kind, err)
	}
	s.logger.InfoContext(ctx, "notification delivered", "kind", n.Kind, "registration_id", n.RegistrationID)
	return nil
}
