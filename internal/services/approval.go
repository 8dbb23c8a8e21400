package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campusfest/internal/domain"
)

type approvalService struct {
	regRepo        domain.RegistrationRepository
	inventory      domain.InventoryStore
	tickets        domain.TicketIssuer
	notifier       domain.NotificationPublisher
	contextTimeout time.Duration
	now            func() time.Time
}

// NewApprovalService returns the Approval Workflow.
func NewApprovalService(regRepo domain.RegistrationRepository, inventory domain.InventoryStore, tickets domain.TicketIssuer, notifier domain.NotificationPublisher, timeout time.Duration) domain.ApprovalService {
	return &approvalService{
		regRepo:        regRepo,
		inventory:      inventory,
		tickets:        tickets,
		notifier:       notifier,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *approvalService) SetStatus(ctx context.Context, registrationID string, status domain.Status, organizer *domain.Principal) (reg *domain.Registration, err error) {
	ctx, span := tracer.Start(ctx, "approval.SetStatus", trace.WithAttributes(
		attribute.String("registration.id", registrationID),
		attribute.String("registration.to", string(status)),
	))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	switch status {
	case domain.StatusConfirmed, domain.StatusRejected, domain.StatusPending:
	default:
		return nil, fmt.Errorf("%w: status must be confirmed, rejected or pending", domain.ErrInvalidInput)
	}

	return s.transition(ctx, registrationID, status, func(ev *domain.Event, r *domain.Registration) error {
		if !ev.ManagedBy(organizer) {
			return domain.ErrForbidden
		}
		return nil
	})
}

func (s *approvalService) Cancel(ctx context.Context, registrationID string, participant *domain.Principal) (reg *domain.Registration, err error) {
	ctx, span := tracer.Start(ctx, "approval.Cancel", trace.WithAttributes(
		attribute.String("registration.id", registrationID),
	))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.transition(ctx, registrationID, domain.StatusCancelled, func(_ *domain.Event, r *domain.Registration) error {
		if participant == nil || r.ParticipantID != participant.UserID {
			return domain.ErrForbidden
		}
		return nil
	})
}

// transition loads the registration, runs authorize under the event lock, and applies the move to status.
// Moving to the registration's current status changes nothing and sends no notification.
func (s *approvalService) transition(ctx context.Context, registrationID string, status domain.Status, authorize func(*domain.Event, *domain.Registration) error) (*domain.Registration, error) {
	current, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}

	now := s.now()
	var (
		reg     *domain.Registration
		event   domain.Event
		changed bool
	)
	apply := func(ticket string) error {
		return s.inventory.WithEventLock(ctx, current.EventID, func(tx domain.InventoryTx) error {
			ev := tx.Event()
			event = *ev
			r, err := tx.RegistrationByID(ctx, registrationID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrRegistrationNotFound
				}
				return fmt.Errorf("get registration: %w", err)
			}
			if err := authorize(ev, r); err != nil {
				return err
			}
			reg = r
			changed, err = applyStatus(ctx, tx, ev, r, status, ticket, now)
			return err
		})
	}
	if status == domain.StatusConfirmed && !current.HasTicket() {
		err = withTicket(ctx, s.tickets, apply)
	} else {
		err = apply("")
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	if changed {
		s.notifier.Publish(ctx, newNotification(domain.NotifyStatusChanged, &event, reg))
	}
	return reg, nil
}

// applyStatus moves reg to status inside tx, keeping stock and the confirmed counter consistent.
// Stock is restored only while held, and re-deducted when a registration without held stock is confirmed.
// Confirming a registration that already has a ticket keeps that ticket.
func applyStatus(ctx context.Context, tx domain.InventoryTx, ev *domain.Event, reg *domain.Registration, status domain.Status, ticket string, now time.Time) (bool, error) {
	from := reg.Status
	if from == status {
		return false, nil
	}
	if from == domain.StatusCancelled {
		return false, fmt.Errorf("%w: registration was cancelled", domain.ErrInvalidTransition)
	}

	switch status {
	case domain.StatusRejected, domain.StatusCancelled:
		if reg.StockHeld {
			if err := restoreStock(ctx, tx, reg.MerchandiseSelections); err != nil {
				return false, err
			}
			reg.StockHeld = false
		}
		if from == domain.StatusConfirmed && ev.CapacityBearing() {
			if err := tx.AdjustConfirmed(ctx, -1); err != nil {
				return false, fmt.Errorf("uncount registration: %w", err)
			}
		}
		if status == domain.StatusCancelled && reg.TeamID != nil {
			if err := leaveTeamTx(ctx, tx, *reg.TeamID, reg.ParticipantID); err != nil && !errors.Is(err, domain.ErrNotInTeam) {
				return false, err
			}
			reg.TeamID = nil
		}

	case domain.StatusPending:
		if from != domain.StatusRejected {
			return false, fmt.Errorf("%w: only rejected registrations can be re-evaluated", domain.ErrInvalidTransition)
		}

	case domain.StatusConfirmed:
		if ev.IsFull() {
			return false, domain.ErrEventFull
		}
		if !reg.StockHeld && len(reg.MerchandiseSelections) > 0 {
			if err := deductStock(ctx, tx, ev, reg.MerchandiseSelections); err != nil {
				return false, err
			}
			reg.StockHeld = true
		}
		if !reg.HasTicket() {
			if ticket == "" {
				return false, fmt.Errorf("confirm registration: no ticket issued")
			}
			reg.TicketID = &ticket
		}
		if ev.CapacityBearing() {
			if err := tx.AdjustConfirmed(ctx, 1); err != nil {
				return false, fmt.Errorf("count registration: %w", err)
			}
		}
	}

	reg.Status = status
	reg.UpdatedAt = now
	if err := tx.UpdateRegistration(ctx, reg); err != nil {
		return false, fmt.Errorf("update registration: %w", err)
	}
	return true, nil
}

// restoreStock gives every selection back to its item. Items removed from the catalog are skipped.
func restoreStock(ctx context.Context, tx domain.InventoryTx, selections []domain.MerchandiseSelection) error {
	for _, sel := range selections {
		if err := tx.AdjustStock(ctx, sel.ItemID, sel.Quantity); err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				continue
			}
			return fmt.Errorf("restore %s: %w", sel.ItemName, err)
		}
	}
	return nil
}

// deductStock re-takes stock for selections whose earlier deduction was restored.
func deductStock(ctx context.Context, tx domain.InventoryTx, ev *domain.Event, selections []domain.MerchandiseSelection) error {
	needed := make(map[string]int, len(selections))
	for _, sel := range selections {
		item := ev.Item(sel.ItemID)
		if item == nil {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, sel.ItemName)
		}
		needed[item.ID] += sel.Quantity
		if item.Stock < needed[item.ID] {
			return fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, item.Name, item.Stock)
		}
	}
	for _, sel := range selections {
		if err := tx.AdjustStock(ctx, sel.ItemID, -sel.Quantity); err != nil {
			return fmt.Errorf("deduct %s: %w", sel.ItemName, err)
		}
	}
	return nil
}
