package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// NotificationKind names a participant-facing message. It doubles as the email template name.
type NotificationKind string

const (
	NotifyRegistrationConfirmed NotificationKind = "registration_confirmed"
	NotifyPaymentRequired       NotificationKind = "payment_required"
	NotifyStatusChanged         NotificationKind = "status_changed"
	NotifyTeamJoined            NotificationKind = "team_joined"
)

// Notification is emitted after a registration change has been committed.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	ParticipantID  string           `json:"participant_id"`
	RegistrationID string           `json:"registration_id"`
	EventID        string           `json:"event_id"`
	EventName      string           `json:"event_name"`
	Status         Status           `json:"status"`
	TicketID       string           `json:"ticket_id,omitempty"`
	TotalCost      int64            `json:"total_cost"`
	TeamName       string           `json:"team_name,omitempty"`
	InviteCode     string           `json:"invite_code,omitempty"`
}

// NotificationPublisher hands notifications off for asynchronous delivery.
// Publish must not block the caller on delivery and failures never roll back the registration.
type NotificationPublisher interface {
	Publish(ctx context.Context, n Notification)
}

// RegistrationEmailData is the template payload for every registration email.
type RegistrationEmailData struct {
	Email      string
	Name       string
	EventName  string
	Status     string
	TicketID   string
	TotalCost  string
	TeamName   string
	InviteCode string
}

// EmailService delivers a committed notification to the participant's inbox.
type EmailService interface {
	Deliver(ctx context.Context, n Notification) error
}
