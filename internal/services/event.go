package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusfest/internal/domain"
)

type catalogService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewCatalogService returns the organizer-facing catalog service.
func NewCatalogService(eventRepo domain.EventRepository, timeout time.Duration) domain.CatalogService {
	return &catalogService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *catalogService) CreateEvent(ctx context.Context, organizer *domain.Principal, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !organizer.CanOrganize() {
		return domain.ErrForbidden
	}
	applyEventDefaults(event)
	if errs := event.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}

	now := s.now()
	event.OrganizerID = organizer.UserID
	event.CurrentRegistrations = 0
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *catalogService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *catalogService) ListEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

func (s *catalogService) UpdateEventDetails(ctx context.Context, eventID string, organizer *domain.Principal, upd domain.EventDetailsUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
	}
	if _, err := s.managedEvent(ctx, eventID, organizer); err != nil {
		return nil, err
	}
	updated, err := s.eventRepo.UpdateDetails(ctx, eventID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// UpdateEventStructure replaces the admission-relevant definition of an event.
// Identity, organizer, descriptive fields and the live counter are kept from the stored event.
func (s *catalogService) UpdateEventStructure(ctx context.Context, eventID string, organizer *domain.Principal, event *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.managedEvent(ctx, eventID, organizer)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Kind = event.Kind
	next.Fee = event.Fee
	next.Capacity = event.Capacity
	next.Eligibility = event.Eligibility
	next.EligibleClass = event.EligibleClass
	next.TeamSizeMax = event.TeamSizeMax
	next.FormFields = event.FormFields
	next.MerchandiseItems = event.MerchandiseItems
	applyEventDefaults(&next)
	if errs := next.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	next.UpdatedAt = s.now()

	if err := s.eventRepo.ReplaceStructure(ctx, &next); err != nil {
		switch {
		case errors.Is(err, domain.ErrEventLocked):
			return nil, domain.ErrEventLocked
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("replace event structure: %w", err)
	}
	return &next, nil
}

func (s *catalogService) managedEvent(ctx context.Context, eventID string, organizer *domain.Principal) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.ManagedBy(organizer) {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func applyEventDefaults(e *domain.Event) {
	if e.Kind == "" {
		e.Kind = domain.EventStandard
	}
	if e.Eligibility == "" {
		e.Eligibility = domain.EligibilityOpen
	}
	if e.FormFields == nil {
		e.FormFields = []domain.FormField{}
	}
	if e.MerchandiseItems == nil {
		e.MerchandiseItems = []*domain.MerchandiseItem{}
	}
	for i, it := range e.MerchandiseItems {
		it.Position = i
		if it.VariantGroups == nil {
			it.VariantGroups = []domain.VariantGroup{}
		}
	}
}
