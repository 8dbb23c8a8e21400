// Package memory is an in-process implementation of every storage interface.
// A single mutex guards all state, so it serves one process only.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusfest/internal/domain"
)

// Store holds all entities. The repository constructors return views onto it.
type Store struct {
	mu sync.RWMutex

	events      map[string]*domain.Event
	eventOrder  []string
	regs        map[string]*domain.Registration
	regByPair   map[string]string
	regByTicket map[string]string
	regsByEvent map[string][]string
	teams       map[string]*domain.Team
	teamByCode  map[string]string

	users       map[string]*domain.User
	userByEmail map[string]string
	roles       map[string]*domain.Role
	userRoles   map[string][]string
}

// NewStore returns an empty store seeded with the participant, organizer and admin roles.
func NewStore() *Store {
	s := &Store{
		events:      make(map[string]*domain.Event),
		regs:        make(map[string]*domain.Registration),
		regByPair:   make(map[string]string),
		regByTicket: make(map[string]string),
		regsByEvent: make(map[string][]string),
		teams:       make(map[string]*domain.Team),
		teamByCode:  make(map[string]string),
		users:       make(map[string]*domain.User),
		userByEmail: make(map[string]string),
		roles:       make(map[string]*domain.Role),
		userRoles:   make(map[string][]string),
	}
	for _, code := range []string{domain.RoleParticipant, domain.RoleOrganizer, domain.RoleAdmin} {
		id := uuid.NewString()
		s.roles[id] = &domain.Role{ID: id, Code: code}
	}
	return s
}

func pairKey(eventID, participantID string) string {
	return eventID + "/" + participantID
}

// Events returns the store as a domain.EventRepository.
func (s *Store) Events() domain.EventRepository { return eventRepo{s} }

// Registrations returns the store as a domain.RegistrationRepository.
func (s *Store) Registrations() domain.RegistrationRepository { return registrationRepo{s} }

// Teams returns the store as a domain.TeamRepository.
func (s *Store) Teams() domain.TeamRepository { return teamRepo{s} }

// Users returns the store as a domain.UserRepository.
func (s *Store) Users() domain.UserRepository { return userRepo{s} }

// Roles returns the store as a domain.RoleRepository.
func (s *Store) Roles() domain.RoleRepository { return roleRepo{s} }

// Inventory returns the store as a domain.InventoryStore.
func (s *Store) Inventory() domain.InventoryStore { return inventory{s} }

type eventRepo struct{ s *Store }

func (r eventRepo) Create(ctx context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = uuid.NewString()
	for _, it := range e.MerchandiseItems {
		it.ID = uuid.NewString()
		it.EventID = e.ID
	}
	r.s.events[e.ID] = cloneEvent(e)
	r.s.eventOrder = append(r.s.eventOrder, e.ID)
	return nil
}

func (r eventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r eventRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := len(r.s.eventOrder)
	start, end := params.Window(total)
	out := make([]*domain.Event, 0, end-start)
	// Newest first, like the SQL listing.
	for i := total - 1 - start; i >= total-end; i-- {
		out = append(out, cloneEvent(r.s.events[r.s.eventOrder[i]]))
	}
	return out, total, nil
}

func (r eventRepo) UpdateDetails(ctx context.Context, eventID string, upd domain.EventDetailsUpdate) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.StartsAt != nil {
		e.StartsAt = cloneTime(upd.StartsAt)
	}
	if upd.EndsAt != nil {
		e.EndsAt = cloneTime(upd.EndsAt)
	}
	if upd.Deadline != nil {
		e.Deadline = cloneTime(upd.Deadline)
	}
	e.UpdatedAt = time.Now()
	return cloneEvent(e), nil
}

func (r eventRepo) ReplaceStructure(ctx context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.events[event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if len(r.s.regsByEvent[event.ID]) > 0 {
		return domain.ErrEventLocked
	}
	for _, it := range event.MerchandiseItems {
		if it.ID == "" || current.Item(it.ID) == nil {
			it.ID = uuid.NewString()
		}
		it.EventID = event.ID
	}
	next := cloneEvent(event)
	next.CurrentRegistrations = current.CurrentRegistrations
	r.s.events[event.ID] = next
	return nil
}

type registrationRepo struct{ s *Store }

func (r registrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (r registrationRepo) GetByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.regByPair[pairKey(eventID, participantID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(r.s.regs[id]), nil
}

func (r registrationRepo) GetByTicketID(ctx context.Context, ticketID string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.regByTicket[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(r.s.regs[id]), nil
}

func (r registrationRepo) TicketExists(ctx context.Context, ticketID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.regByTicket[ticketID]
	return ok, nil
}

func (r registrationRepo) ListByEvent(ctx context.Context, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []*domain.Registration
	for _, id := range r.s.regsByEvent[eventID] {
		reg := r.s.regs[id]
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		matched = append(matched, reg)
	}
	start, end := params.Window(len(matched))
	out := make([]*domain.Registration, 0, end-start)
	for _, reg := range matched[start:end] {
		out = append(out, cloneRegistration(reg))
	}
	return out, len(matched), nil
}

func (r registrationRepo) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Registration, 0)
	for _, reg := range r.s.regs {
		if reg.ParticipantID == participantID {
			out = append(out, cloneRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r registrationRepo) UpdatePaymentProof(ctx context.Context, id, participantID, proofRef string, now time.Time) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok || reg.ParticipantID != participantID || reg.Status != domain.StatusPending {
		return nil, domain.ErrNotFound
	}
	reg.PaymentProofRef = &proofRef
	reg.UpdatedAt = now
	return cloneRegistration(reg), nil
}

func (r registrationRepo) MarkAttended(ctx context.Context, ticketID string, at time.Time) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.regByTicket[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	reg := r.s.regs[id]
	if reg.Attended {
		return nil, domain.ErrNotFound
	}
	reg.Attended = true
	reg.AttendedAt = &at
	reg.UpdatedAt = at
	return cloneRegistration(reg), nil
}

type teamRepo struct{ s *Store }

func (r teamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTeam(t), nil
}

func (r teamRepo) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.teamByCode[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTeam(r.s.teams[id]), nil
}

func (r teamRepo) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.teamByCode[strings.ToUpper(code)]
	return ok, nil
}

func (r teamRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Team, 0)
	for _, t := range r.s.teams {
		if t.EventID == eventID {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.userByEmail[u.Email]; dup {
		return domain.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	cp := *u
	r.s.users[u.ID] = &cp
	r.s.userByEmail[u.Email] = u.ID
	return nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.userByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.s.users[id]
	return &cp, nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	r.s.userRoles[userID] = append(r.s.userRoles[userID], roleID)
	return nil
}

type roleRepo struct{ s *Store }

func (r roleRepo) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if role.Code == code {
			cp := *role
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r roleRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Role
	for _, id := range r.s.userRoles[userID] {
		cp := *r.s.roles[id]
		out = append(out, &cp)
	}
	return out, nil
}
