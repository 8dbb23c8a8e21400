package domain

import "errors"

// Generic sentinel errors shared by repositories and services.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Reservation errors. All of them leave stock, counters and records untouched.
var (
	ErrDuplicateRegistration        = errors.New("already registered for this event")
	ErrRegistrationClosed           = errors.New("registration deadline has passed")
	ErrEventFull                    = errors.New("event is full")
	ErrNotEligible                  = errors.New("not eligible for this event")
	ErrInvalidFormResponse          = errors.New("invalid form response")
	ErrItemNotFound                 = errors.New("merchandise item not found")
	ErrInsufficientStock            = errors.New("insufficient stock")
	ErrPerUserLimitExceeded         = errors.New("per-user limit exceeded")
	ErrVariantRequired              = errors.New("variant selection required")
	ErrInvalidVariantOption         = errors.New("invalid variant option")
	ErrMerchandiseSelectionRequired = errors.New("merchandise selection required")
)

// Registration lifecycle and catalog errors.
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrEventLocked          = errors.New("event structure cannot change once registrations exist")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketCollision      = errors.New("ticket id already issued")
	ErrAlreadyAttended      = errors.New("attendance already marked")
	ErrTicketRevoked        = errors.New("ticket belongs to a registration that is not confirmed")
)

// Team errors.
var (
	ErrAlreadyInTeam     = errors.New("already in a team for this event")
	ErrTeamFull          = errors.New("team is full")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrNotInTeam         = errors.New("not a member of this team")
	ErrNotTeamEvent      = errors.New("event does not use teams")
)

// Auth errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
