package domain

import (
	"context"
	"time"
)

// Team groups participants of a team event under one invite code.
// swagger:model Team
type Team struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	LeaderID   string    `json:"leader_id"`
	Members    []string  `json:"members"`
	InviteCode string    `json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasMember reports whether participantID is on the team.
func (t *Team) HasMember(participantID string) bool {
	for _, m := range t.Members {
		if m == participantID {
			return true
		}
	}
	return false
}

// TeamRepository defines unlocked team lookups. Membership changes go through InventoryTx.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*Team, error)
	GetByInviteCode(ctx context.Context, code string) (*Team, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Team, error)
}

// TeamMembership is the result of creating or joining a team.
type TeamMembership struct {
	Team         *Team         `json:"team"`
	Registration *Registration `json:"registration"`
}

// TeamService is Team Formation.
type TeamService interface {
	CreateTeam(ctx context.Context, participant *Principal, eventID, name string) (*TeamMembership, error)
	JoinTeam(ctx context.Context, participant *Principal, inviteCode string) (*TeamMembership, error)
	LeaveTeam(ctx context.Context, participant *Principal, teamID string) error
	ListTeams(ctx context.Context, eventID string) ([]*Team, error)
}
