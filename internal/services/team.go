package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campusfest/internal/domain"
)

type teamService struct {
	inventory      domain.InventoryStore
	teamRepo       domain.TeamRepository
	tickets        domain.TicketIssuer
	codes          domain.CodeGenerator
	notifier       domain.NotificationPublisher
	contextTimeout time.Duration
	now            func() time.Time
}

// NewTeamService returns Team Formation. codes generates invite codes; nil uses the default alphabet.
func NewTeamService(inventory domain.InventoryStore, teamRepo domain.TeamRepository, tickets domain.TicketIssuer, codes domain.CodeGenerator, notifier domain.NotificationPublisher, timeout time.Duration) domain.TeamService {
	if codes == nil {
		codes = NewCodeGenerator(inviteAlphabet)
	}
	return &teamService{
		inventory:      inventory,
		teamRepo:       teamRepo,
		tickets:        tickets,
		codes:          codes,
		notifier:       notifier,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, participant *domain.Principal, eventID, name string) (m *domain.TeamMembership, err error) {
	ctx, span := tracer.Start(ctx, "team.Create", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", domain.ErrInvalidInput)
	}
	if participant == nil || participant.UserID == "" {
		return nil, domain.ErrForbidden
	}
	code, err := newInviteCode(ctx, s.teamRepo, s.codes)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var event domain.Event
	err = withTicket(ctx, s.tickets, func(ticket string) error {
		return s.inventory.WithEventLock(ctx, eventID, func(tx domain.InventoryTx) error {
			ev := tx.Event()
			event = *ev
			if err := admitToTeam(ctx, tx, ev, participant, now); err != nil {
				return err
			}
			team := &domain.Team{
				EventID:    ev.ID,
				Name:       name,
				LeaderID:   participant.UserID,
				Members:    []string{participant.UserID},
				InviteCode: code,
				CreatedAt:  now,
			}
			if err := tx.CreateTeam(ctx, team); err != nil {
				return fmt.Errorf("create team: %w", err)
			}
			reg, err := upsertTeamRegistration(ctx, tx, ev, participant.UserID, team.ID, ticket, now)
			if err != nil {
				return err
			}
			m = &domain.TeamMembership{Team: team, Registration: reg}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.notifyJoined(ctx, &event, m)
	return m, nil
}

func (s *teamService) JoinTeam(ctx context.Context, participant *domain.Principal, inviteCode string) (m *domain.TeamMembership, err error) {
	ctx, span := tracer.Start(ctx, "team.Join")
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if participant == nil || participant.UserID == "" {
		return nil, domain.ErrForbidden
	}
	found, err := s.teamRepo.GetByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(inviteCode)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	span.SetAttributes(attribute.String("event.id", found.EventID), attribute.String("team.id", found.ID))
	now := s.now()
	var event domain.Event
	err = withTicket(ctx, s.tickets, func(ticket string) error {
		return s.inventory.WithEventLock(ctx, found.EventID, func(tx domain.InventoryTx) error {
			ev := tx.Event()
			event = *ev
			team, err := tx.TeamByID(ctx, found.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrInvalidInviteCode
				}
				return fmt.Errorf("get team: %w", err)
			}
			if len(team.Members) >= ev.TeamSizeMax {
				return domain.ErrTeamFull
			}
			if err := admitToTeam(ctx, tx, ev, participant, now); err != nil {
				return err
			}
			if err := tx.AddTeamMember(ctx, team.ID, participant.UserID); err != nil {
				return fmt.Errorf("add team member: %w", err)
			}
			team.Members = append(team.Members, participant.UserID)
			reg, err := upsertTeamRegistration(ctx, tx, ev, participant.UserID, team.ID, ticket, now)
			if err != nil {
				return err
			}
			m = &domain.TeamMembership{Team: team, Registration: reg}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidInviteCode
		}
		return nil, err
	}
	s.notifyJoined(ctx, &event, m)
	return m, nil
}

func (s *teamService) LeaveTeam(ctx context.Context, participant *domain.Principal, teamID string) (err error) {
	ctx, span := tracer.Start(ctx, "team.Leave", trace.WithAttributes(attribute.String("team.id", teamID)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if participant == nil || participant.UserID == "" {
		return domain.ErrForbidden
	}
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get team: %w", err)
	}

	now := s.now()
	err = s.inventory.WithEventLock(ctx, team.EventID, func(tx domain.InventoryTx) error {
		if err := leaveTeamTx(ctx, tx, teamID, participant.UserID); err != nil {
			return err
		}
		reg, err := tx.RegistrationByParticipant(ctx, participant.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("find registration: %w", err)
		}
		if reg.TeamID == nil || *reg.TeamID != teamID {
			return nil
		}
		reg.TeamID = nil
		reg.UpdatedAt = now
		return tx.UpdateRegistration(ctx, reg)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *teamService) ListTeams(ctx context.Context, eventID string) ([]*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	teams, err := s.teamRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (s *teamService) notifyJoined(ctx context.Context, ev *domain.Event, m *domain.TeamMembership) {
	n := newNotification(domain.NotifyTeamJoined, ev, m.Registration)
	n.TeamName = m.Team.Name
	n.InviteCode = m.Team.InviteCode
	s.notifier.Publish(ctx, n)
}

// admitToTeam runs the admission checks shared by create and join.
func admitToTeam(ctx context.Context, tx domain.InventoryTx, ev *domain.Event, participant *domain.Principal, now time.Time) error {
	if ev.Kind != domain.EventTeam {
		return domain.ErrNotTeamEvent
	}
	if ev.DeadlinePassed(now) {
		return domain.ErrRegistrationClosed
	}
	if !ev.Admits(participant.EligibilityClass) {
		return domain.ErrNotEligible
	}
	if _, err := tx.TeamByParticipant(ctx, participant.UserID); err == nil {
		return domain.ErrAlreadyInTeam
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("find team: %w", err)
	}
	return nil
}

// upsertTeamRegistration makes sure the participant holds a Confirmed registration with a ticket.
// Rejected and Cancelled registrations are final for team admission.
func upsertTeamRegistration(ctx context.Context, tx domain.InventoryTx, ev *domain.Event, participantID, teamID, ticket string, now time.Time) (*domain.Registration, error) {
	reg, err := tx.RegistrationByParticipant(ctx, participantID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if ev.IsFull() {
			return nil, domain.ErrEventFull
		}
		reg = domain.NewRegistration(ev.ID, participantID, domain.StatusConfirmed, now)
		reg.TicketID = &ticket
		reg.TeamID = &teamID
		if err := tx.AdjustConfirmed(ctx, 1); err != nil {
			return nil, fmt.Errorf("count registration: %w", err)
		}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			return nil, err
		}
		return reg, nil
	case err != nil:
		return nil, fmt.Errorf("find registration: %w", err)
	}

	switch reg.Status {
	case domain.StatusRejected:
		return nil, fmt.Errorf("%w: registration was rejected by the organizer", domain.ErrInvalidTransition)
	case domain.StatusCancelled:
		return nil, fmt.Errorf("%w: registration was cancelled", domain.ErrInvalidTransition)
	case domain.StatusPending:
		if ev.IsFull() {
			return nil, domain.ErrEventFull
		}
		if err := tx.AdjustConfirmed(ctx, 1); err != nil {
			return nil, fmt.Errorf("count registration: %w", err)
		}
		reg.Status = domain.StatusConfirmed
	}
	if !reg.HasTicket() {
		reg.TicketID = &ticket
	}
	reg.TeamID = &teamID
	reg.UpdatedAt = now
	if err := tx.UpdateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return reg, nil
}

// leaveTeamTx removes participantID from the team, deleting it when empty and handing leadership on.
func leaveTeamTx(ctx context.Context, tx domain.InventoryTx, teamID, participantID string) error {
	team, err := tx.TeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.HasMember(participantID) {
		return domain.ErrNotInTeam
	}
	if err := tx.RemoveTeamMember(ctx, teamID, participantID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	remaining := make([]string, 0, len(team.Members))
	for _, m := range team.Members {
		if m != participantID {
			remaining = append(remaining, m)
		}
	}
	if len(remaining) == 0 {
		if err := tx.DeleteTeam(ctx, teamID); err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	}
	if team.LeaderID == participantID {
		if err := tx.SetTeamLeader(ctx, teamID, remaining[0]); err != nil {
			return fmt.Errorf("reassign leader: %w", err)
		}
	}
	return nil
}
