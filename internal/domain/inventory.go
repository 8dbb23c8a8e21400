package domain

import "context"

// InventoryStore serializes every stock, counter and registration-status mutation for one event.
type InventoryStore interface {
	// WithEventLock runs fn in one transaction holding the event's inventory lock.
	// The event passed to fn (with its merchandise) is read under that lock.
	// If fn returns an error nothing it did is persisted.
	// It returns ErrNotFound when the event does not exist.
	WithEventLock(ctx context.Context, eventID string, fn func(tx InventoryTx) error) error
}

// InventoryTx is the set of writes allowed while holding an event's inventory lock.
type InventoryTx interface {
	Event() *Event

	// AdjustStock adds delta to the item's stock. A result below zero fails with ErrInsufficientStock.
	// A missing item fails with ErrItemNotFound.
	AdjustStock(ctx context.Context, itemID string, delta int) error
	// AdjustConfirmed adds delta to the event's confirmed counter, flooring at zero.
	AdjustConfirmed(ctx context.Context, delta int) error

	RegistrationByID(ctx context.Context, id string) (*Registration, error)
	RegistrationByParticipant(ctx context.Context, participantID string) (*Registration, error)
	// CreateRegistration inserts reg and sets its ID. A second registration for the same
	// participant and event fails with ErrDuplicateRegistration.
	CreateRegistration(ctx context.Context, reg *Registration) error
	// UpdateRegistration persists status, ticket, stock-held flag and team reference.
	UpdateRegistration(ctx context.Context, reg *Registration) error

	TeamByID(ctx context.Context, teamID string) (*Team, error)
	TeamByParticipant(ctx context.Context, participantID string) (*Team, error)
	CreateTeam(ctx context.Context, team *Team) error
	AddTeamMember(ctx context.Context, teamID, participantID string) error
	RemoveTeamMember(ctx context.Context, teamID, participantID string) error
	SetTeamLeader(ctx context.Context, teamID, leaderID string) error
	DeleteTeam(ctx context.Context, teamID string) error
}
