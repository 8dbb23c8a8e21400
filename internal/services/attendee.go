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

type registrationService struct {
	regRepo        domain.RegistrationRepository
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
	now            func() time.Time
	// requireConfirmed refuses attendance for tickets whose registration left Confirmed.
	requireConfirmed bool
}

// NewRegistrationService returns registration reads, payment proof updates and attendance marking.
func NewRegistrationService(regRepo domain.RegistrationRepository, eventRepo domain.EventRepository, timeout time.Duration, requireConfirmed bool) domain.RegistrationService {
	return &registrationService{
		regRepo:          regRepo,
		eventRepo:        eventRepo,
		contextTimeout:   timeout,
		now:              time.Now,
		requireConfirmed: requireConfirmed,
	}
}

func (s *registrationService) GetRegistration(ctx context.Context, registrationID string, caller *domain.Principal) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.getRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if caller != nil && reg.ParticipantID == caller.UserID {
		return reg, nil
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.ManagedBy(caller) {
		return nil, domain.ErrForbidden
	}
	return reg, nil
}

func (s *registrationService) ListByEvent(ctx context.Context, eventID string, organizer *domain.Principal, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if !event.ManagedBy(organizer) {
		return nil, 0, domain.ErrForbidden
	}
	regs, total, err := s.regRepo.ListByEvent(ctx, eventID, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	return regs, total, nil
}

func (s *registrationService) ListMine(ctx context.Context, participant *domain.Principal) ([]*domain.RegistrationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.regRepo.ListByParticipant(ctx, participant.UserID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	eventsByID := make(map[string]*domain.Event)
	result := make([]*domain.RegistrationWithEvent, 0, len(regs))
	for _, reg := range regs {
		ev, ok := eventsByID[reg.EventID]
		if !ok {
			ev, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get event for registration: %w", err)
			}
			eventsByID[reg.EventID] = ev
		}
		result = append(result, &domain.RegistrationWithEvent{Registration: reg, Event: ev})
	}
	return result, nil
}

// UpdatePaymentProof records the participant's proof reference while the registration is pending.
func (s *registrationService) UpdatePaymentProof(ctx context.Context, registrationID string, participant *domain.Principal, proofRef string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, fmt.Errorf("%w: payment proof reference is required", domain.ErrInvalidInput)
	}
	reg, err := s.getRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if participant == nil || reg.ParticipantID != participant.UserID || reg.Status != domain.StatusPending {
		return nil, domain.ErrForbidden
	}
	updated, err := s.regRepo.UpdatePaymentProof(ctx, registrationID, participant.UserID, proofRef, s.now())
	if err != nil {
		// The status moved between the read and the conditional update.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("update payment proof: %w", err)
	}
	return updated, nil
}

func (s *registrationService) MarkAttendance(ctx context.Context, ticketID string, organizer *domain.Principal) (rec *domain.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "attendance.Mark", trace.WithAttributes(attribute.String("ticket.id", ticketID)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ticketID = strings.ToUpper(strings.TrimSpace(ticketID))
	reg, err := s.regRepo.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get registration by ticket: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.ManagedBy(organizer) {
		return nil, domain.ErrForbidden
	}
	if s.requireConfirmed && reg.Status != domain.StatusConfirmed {
		return nil, domain.ErrTicketRevoked
	}
	if reg.Attended {
		return nil, domain.ErrAlreadyAttended
	}
	updated, err := s.regRepo.MarkAttended(ctx, ticketID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAlreadyAttended
		}
		return nil, fmt.Errorf("mark attended: %w", err)
	}
	return &domain.AttendanceRecord{ParticipantID: updated.ParticipantID, Event: event, Registration: updated}, nil
}

func (s *registrationService) getRegistration(ctx context.Context, id string) (*domain.Registration, error) {
	reg, err := s.regRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}
