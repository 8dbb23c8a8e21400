package domain

import (
	"context"
	"time"
)

// Status is a registration's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Closed reports whether the registration has been rejected or cancelled.
func (s Status) Closed() bool {
	return s == StatusRejected || s == StatusCancelled
}

// MerchandiseSelection is one line of merchandise on a registration.
// swagger:model MerchandiseSelection
type MerchandiseSelection struct {
	ItemID              string            `json:"item_id"`
	ItemName            string            `json:"item_name"`
	Quantity            int               `json:"quantity"`
	Variant             map[string]string `json:"variant,omitempty"`
	UnitPriceAtPurchase int64             `json:"unit_price_at_purchase"`
}

// Registration is one participant's registration for one event.
// swagger:model Registration
type Registration struct {
	ID                    string                 `json:"id"`
	EventID               string                 `json:"event_id"`
	ParticipantID         string                 `json:"participant_id"`
	Status                Status                 `json:"status"`
	TicketID              *string                `json:"ticket_id"`
	Attended              bool                   `json:"attended"`
	AttendedAt            *time.Time             `json:"attended_at,omitempty"`
	MerchandiseSelections []MerchandiseSelection `json:"merchandise_selections"`
	FormResponses         FormResponses          `json:"form_responses"`
	PaymentProofRef       *string                `json:"payment_proof_ref"`
	TotalCost             int64                  `json:"total_cost"`
	// StockHeld is true while the selections' quantities are deducted from stock.
	StockHeld bool      `json:"stock_held"`
	TeamID    *string   `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRegistration returns a registration with empty collections. ID is set by the store on create.
func NewRegistration(eventID, participantID string, status Status, now time.Time) *Registration {
	return &Registration{
		EventID:               eventID,
		ParticipantID:         participantID,
		Status:                status,
		MerchandiseSelections: []MerchandiseSelection{},
		FormResponses:         FormResponses{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// HasTicket reports whether a ticket was ever issued for the registration.
func (r *Registration) HasTicket() bool {
	return r.TicketID != nil && *r.TicketID != ""
}

// RegistrationFilter narrows ListByEvent. Zero values mean no filter.
type RegistrationFilter struct {
	Status Status
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// AttendanceRecord is returned when a ticket is scanned at the venue.
// swagger:model AttendanceRecord
type AttendanceRecord struct {
	ParticipantID string        `json:"participant_id"`
	Event         *Event        `json:"event"`
	Registration  *Registration `json:"registration"`
}

// RegistrationRepository defines the unlocked read/update paths of the registration store.
// Creates and status changes go through InventoryTx.
type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*Registration, error)
	GetByTicketID(ctx context.Context, ticketID string) (*Registration, error)
	TicketExists(ctx context.Context, ticketID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string, filter RegistrationFilter, params PaginationParams) ([]*Registration, int, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*Registration, error)
	// UpdatePaymentProof sets the proof only when participantID owns the registration and it is pending.
	UpdatePaymentProof(ctx context.Context, id, participantID, proofRef string, now time.Time) (*Registration, error)
	// MarkAttended flips attended for the ticket exactly once.
	MarkAttended(ctx context.Context, ticketID string, at time.Time) (*Registration, error)
}

// MerchandiseRequest is one requested merchandise line.
type MerchandiseRequest struct {
	ItemID   string            `json:"item_id"`
	Quantity int               `json:"quantity"`
	Variant  map[string]string `json:"variant"`
}

// ReservationRequest is the participant's registration attempt.
type ReservationRequest struct {
	EventID       string
	FormResponses FormResponses
	Merchandise   []MerchandiseRequest
}

// ReservationService is the Reservation Engine.
type ReservationService interface {
	Reserve(ctx context.Context, participant *Principal, req ReservationRequest) (*Registration, error)
}

// ApprovalService moves registrations between statuses and keeps stock and counters consistent.
type ApprovalService interface {
	// SetStatus is organizer-only; status must be Confirmed, Rejected or Pending.
	SetStatus(ctx context.Context, registrationID string, status Status, organizer *Principal) (*Registration, error)
	// Cancel is participant-only and moves the caller's own registration to Cancelled.
	Cancel(ctx context.Context, registrationID string, participant *Principal) (*Registration, error)
}

// RegistrationService covers reads, payment proofs and attendance.
type RegistrationService interface {
	GetRegistration(ctx context.Context, registrationID string, caller *Principal) (*Registration, error)
	ListByEvent(ctx context.Context, eventID string, organizer *Principal, filter RegistrationFilter, params PaginationParams) ([]*Registration, int, error)
	ListMine(ctx context.Context, participant *Principal) ([]*RegistrationWithEvent, error)
	UpdatePaymentProof(ctx context.Context, registrationID string, participant *Principal, proofRef string) (*Registration, error)
	MarkAttendance(ctx context.Context, ticketID string, organizer *Principal) (*AttendanceRecord, error)
}
