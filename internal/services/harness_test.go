package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
	"campusfest/internal/repository/memory"
)

const testTimeout = 5 * time.Second

// recordingPublisher captures published notifications.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) kinds() []domain.NotificationKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.NotificationKind, len(p.sent))
	for i, n := range p.sent {
		out[i] = n.Kind
	}
	return out
}

// fixture wires every registration service to one memory store.
type fixture struct {
	store     *memory.Store
	pub       *recordingPublisher
	catalog   domain.CatalogService
	reserve   domain.ReservationService
	approval  domain.ApprovalService
	regs      domain.RegistrationService
	teams     domain.TeamService
	organizer *domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	tickets := NewTicketIssuer(store.Registrations(), nil)
	return &fixture{
		store:     store,
		pub:       pub,
		catalog:   NewCatalogService(store.Events(), testTimeout),
		reserve:   NewReservationService(store.Inventory(), tickets, pub, testTimeout),
		approval:  NewApprovalService(store.Registrations(), store.Inventory(), tickets, pub, testTimeout),
		regs:      NewRegistrationService(store.Registrations(), store.Events(), testTimeout, true),
		teams:     NewTeamService(store.Inventory(), store.Teams(), tickets, nil, pub, testTimeout),
		organizer: &domain.Principal{UserID: "org-1", Roles: []string{domain.RoleOrganizer}},
	}
}

func participant(id string) *domain.Principal {
	return &domain.Principal{UserID: id, Roles: []string{domain.RoleParticipant}}
}

func (f *fixture) createEvent(t *testing.T, ev *domain.Event) *domain.Event {
	t.Helper()
	require.NoError(t, f.catalog.CreateEvent(context.Background(), f.organizer, ev))
	return ev
}

func (f *fixture) event(t *testing.T, id string) *domain.Event {
	t.Helper()
	ev, err := f.store.Events().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ev
}

func (f *fixture) stock(t *testing.T, eventID string, item int) int {
	t.Helper()
	return f.event(t, eventID).MerchandiseItems[item].Stock
}

// shirtEvent is a paid-merch standard event: one shirt with a Size group, stock 10, limit 2.
func shirtEvent() *domain.Event {
	return &domain.Event{
		Name:     "Fest Kickoff",
		Kind:     domain.EventStandard,
		Capacity: 100,
		MerchandiseItems: []*domain.MerchandiseItem{
			{
				Name:          "Fest Tee",
				UnitPrice:     300,
				Stock:         10,
				PerUserLimit:  2,
				VariantGroups: []domain.VariantGroup{{Name: "Size", Options: []string{"S", "M", "L"}}},
			},
		},
	}
}

func shirt(ev *domain.Event, qty int, size string) domain.MerchandiseRequest {
	req := domain.MerchandiseRequest{ItemID: ev.MerchandiseItems[0].ID, Quantity: qty}
	if size != "" {
		req.Variant = map[string]string{"Size": size}
	}
	return req
}
