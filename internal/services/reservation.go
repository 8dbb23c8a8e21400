package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"campusfest/internal/domain"
)

var tracer = otel.Tracer("campusfest/internal/services")

type reservationService struct {
	inventory      domain.InventoryStore
	tickets        domain.TicketIssuer
	notifier       domain.NotificationPublisher
	contextTimeout time.Duration
	now            func() time.Time
}

// NewReservationService returns the Reservation Engine.
func NewReservationService(inventory domain.InventoryStore, tickets domain.TicketIssuer, notifier domain.NotificationPublisher, timeout time.Duration) domain.ReservationService {
	return &reservationService{
		inventory:      inventory,
		tickets:        tickets,
		notifier:       notifier,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *reservationService) Reserve(ctx context.Context, participant *domain.Principal, req domain.ReservationRequest) (reg *domain.Registration, err error) {
	ctx, span := tracer.Start(ctx, "reservation.Reserve", trace.WithAttributes(
		attribute.String("event.id", req.EventID),
		attribute.Int("merchandise.lines", len(req.Merchandise)),
	))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if participant == nil || participant.UserID == "" {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	var event domain.Event
	// The ticket is only attached if the registration is confirmed inside the lock.
	err = withTicket(ctx, s.tickets, func(ticket string) error {
		return s.inventory.WithEventLock(ctx, req.EventID, func(tx domain.InventoryTx) error {
			ev := tx.Event()
			event = *ev

			if _, err := tx.RegistrationByParticipant(ctx, participant.UserID); err == nil {
				return domain.ErrDuplicateRegistration
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("find registration: %w", err)
			}
			if ev.DeadlinePassed(now) {
				return domain.ErrRegistrationClosed
			}
			if ev.Kind == domain.EventTeam {
				return fmt.Errorf("%w: %s admits participants through teams", domain.ErrInvalidInput, ev.Name)
			}
			if ev.IsFull() {
				return domain.ErrEventFull
			}
			if !ev.Admits(participant.EligibilityClass) {
				return domain.ErrNotEligible
			}
			if err := req.FormResponses.Validate(ev.FormFields); err != nil {
				return err
			}
			selections, total, err := priceSelections(ev, req.Merchandise)
			if err != nil {
				return err
			}

			for _, sel := range selections {
				if err := tx.AdjustStock(ctx, sel.ItemID, -sel.Quantity); err != nil {
					return fmt.Errorf("deduct %s: %w", sel.ItemName, err)
				}
			}

			status := domain.StatusPending
			if total == 0 && ev.Fee == 0 {
				status = domain.StatusConfirmed
			}
			reg = domain.NewRegistration(ev.ID, participant.UserID, status, now)
			reg.MerchandiseSelections = selections
			if req.FormResponses != nil {
				reg.FormResponses = req.FormResponses
			}
			reg.TotalCost = total
			reg.StockHeld = len(selections) > 0

			if status == domain.StatusConfirmed {
				reg.TicketID = &ticket
				if ev.CapacityBearing() {
					if err := tx.AdjustConfirmed(ctx, 1); err != nil {
						return fmt.Errorf("count registration: %w", err)
					}
				}
			}
			return tx.CreateRegistration(ctx, reg)
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("registration.status", string(reg.Status)))
	kind := domain.NotifyPaymentRequired
	if reg.Status == domain.StatusConfirmed {
		kind = domain.NotifyRegistrationConfirmed
	}
	s.notifier.Publish(ctx, newNotification(kind, &event, reg))
	return reg, nil
}

// priceSelections validates every requested line against the catalog before any stock moves.
// Quantities of repeated items are summed for the stock and per-user checks.
func priceSelections(ev *domain.Event, reqs []domain.MerchandiseRequest) ([]domain.MerchandiseSelection, int64, error) {
	selections := make([]domain.MerchandiseSelection, 0, len(reqs))
	requested := make(map[string]int, len(reqs))
	var total int64

	for _, r := range reqs {
		item := ev.Item(r.ItemID)
		if item == nil {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrItemNotFound, r.ItemID)
		}
		if r.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: quantity for %s must be at least 1", domain.ErrInvalidInput, item.Name)
		}
		requested[item.ID] += r.Quantity
		if item.Stock < requested[item.ID] {
			return nil, 0, fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, item.Name, item.Stock)
		}
		if item.PerUserLimit > 0 && requested[item.ID] > item.PerUserLimit {
			return nil, 0, fmt.Errorf("%w: %s allows %d per participant", domain.ErrPerUserLimitExceeded, item.Name, item.PerUserLimit)
		}
		variant, err := resolveVariant(item, r.Variant)
		if err != nil {
			return nil, 0, err
		}
		selections = append(selections, domain.MerchandiseSelection{
			ItemID:              item.ID,
			ItemName:            item.Name,
			Quantity:            r.Quantity,
			Variant:             variant,
			UnitPriceAtPurchase: item.UnitPrice,
		})
		total += item.UnitPrice * int64(r.Quantity)
	}

	if len(selections) == 0 && ev.RequiresMerchandise() {
		return nil, 0, domain.ErrMerchandiseSelectionRequired
	}
	return selections, total, nil
}

func resolveVariant(item *domain.MerchandiseItem, chosen map[string]string) (map[string]string, error) {
	variant := make(map[string]string, len(item.VariantGroups))
	for _, g := range item.VariantGroups {
		opt, ok := chosen[g.Name]
		if !ok || opt == "" {
			return nil, fmt.Errorf("%w: %s needs a %s", domain.ErrVariantRequired, item.Name, g.Name)
		}
		if !g.Allows(opt) {
			return nil, fmt.Errorf("%w: %q is not a %s option for %s", domain.ErrInvalidVariantOption, opt, g.Name, item.Name)
		}
		variant[g.Name] = opt
	}
	for name := range chosen {
		if _, ok := variant[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no %s variant", domain.ErrInvalidVariantOption, item.Name, name)
		}
	}
	return variant, nil
}

func newNotification(kind domain.NotificationKind, ev *domain.Event, reg *domain.Registration) domain.Notification {
	n := domain.Notification{
		Kind:           kind,
		ParticipantID:  reg.ParticipantID,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		EventName:      ev.Name,
		Status:         reg.Status,
		TotalCost:      ev.Fee + reg.TotalCost,
	}
	if reg.TicketID != nil {
		n.TicketID = *reg.TicketID
	}
	return n
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
