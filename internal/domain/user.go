package domain

import (
	"context"
	"time"
)

// Role codes.
const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
	RoleAdmin       = "admin"
)

// User represents a registered user
// swagger:model User
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	EligibilityClass string    `json:"eligibility_class"`
	PasswordHash     string    `json:"-"`
	Salt             string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(email, name, eligibilityClass string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:            email,
		Name:             name,
		EligibilityClass: eligibilityClass,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

// Role represents an application role (e.g. organizer, participant)
type Role struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Principal is the authenticated caller, resolved from the bearer token.
type Principal struct {
	UserID           string   `json:"user_id"`
	Email            string   `json:"email"`
	EligibilityClass string   `json:"eligibility_class"`
	Roles            []string `json:"roles"`
}

// HasRole reports whether the principal carries the role code.
func (p *Principal) HasRole(code string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == code {
			return true
		}
	}
	return false
}

// CanOrganize reports whether the principal may create events.
func (p *Principal) CanOrganize() bool {
	return p.HasRole(RoleOrganizer) || p.HasRole(RoleAdmin)
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(p *Principal, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	AssignRole(ctx context.Context, userID, roleID string) error
}

// RoleRepository defines the interface for role storage
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*Role, error)
	ListByUserID(ctx context.Context, userID string) ([]*Role, error)
}

// AuthService signs users up and logs them in.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name, eligibilityClass, role string) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
}
