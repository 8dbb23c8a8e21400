package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"campusfest/internal/domain"
)

type inventory struct{ s *Store }

// WithEventLock holds the store's write lock for the whole of fn.
// Every mutation records an undo step, replayed in reverse when fn fails.
func (inv inventory) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.InventoryTx) error) error {
	inv.s.mu.Lock()
	defer inv.s.mu.Unlock()

	ev, ok := inv.s.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: inv.s, event: ev}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s     *Store
	event *domain.Event
	undo  []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) Event() *domain.Event { return tx.event }

func (tx *memTx) AdjustStock(ctx context.Context, itemID string, delta int) error {
	item := tx.event.Item(itemID)
	if item == nil {
		return domain.ErrItemNotFound
	}
	if item.Stock+delta < 0 {
		return fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, item.Name, item.Stock)
	}
	prev := item.Stock
	item.Stock += delta
	tx.undo = append(tx.undo, func() { item.Stock = prev })
	return nil
}

func (tx *memTx) AdjustConfirmed(ctx context.Context, delta int) error {
	prev := tx.event.CurrentRegistrations
	next := prev + delta
	if next < 0 {
		next = 0
	}
	tx.event.CurrentRegistrations = next
	tx.undo = append(tx.undo, func() { tx.event.CurrentRegistrations = prev })
	return nil
}

func (tx *memTx) RegistrationByID(ctx context.Context, id string) (*domain.Registration, error) {
	reg, ok := tx.s.regs[id]
	if !ok || reg.EventID != tx.event.ID {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (tx *memTx) RegistrationByParticipant(ctx context.Context, participantID string) (*domain.Registration, error) {
	id, ok := tx.s.regByPair[pairKey(tx.event.ID, participantID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(tx.s.regs[id]), nil
}

func (tx *memTx) CreateRegistration(ctx context.Context, reg *domain.Registration) error {
	key := pairKey(reg.EventID, reg.ParticipantID)
	if _, dup := tx.s.regByPair[key]; dup {
		return domain.ErrDuplicateRegistration
	}
	if reg.HasTicket() {
		if _, taken := tx.s.regByTicket[*reg.TicketID]; taken {
			return fmt.Errorf("ticket %s: %w", *reg.TicketID, domain.ErrTicketCollision)
		}
	}
	reg.ID = uuid.NewString()
	stored := cloneRegistration(reg)
	tx.s.regs[reg.ID] = stored
	tx.s.regByPair[key] = reg.ID
	if reg.HasTicket() {
		tx.s.regByTicket[*reg.TicketID] = reg.ID
	}
	prevList := tx.s.regsByEvent[reg.EventID]
	tx.s.regsByEvent[reg.EventID] = append(prevList[:len(prevList):len(prevList)], reg.ID)

	tx.undo = append(tx.undo, func() {
		delete(tx.s.regs, stored.ID)
		delete(tx.s.regByPair, key)
		if stored.HasTicket() {
			delete(tx.s.regByTicket, *stored.TicketID)
		}
		tx.s.regsByEvent[stored.EventID] = prevList
	})
	return nil
}

func (tx *memTx) UpdateRegistration(ctx context.Context, reg *domain.Registration) error {
	current, ok := tx.s.regs[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	prev := cloneRegistration(current)
	newTicket := reg.HasTicket() && (!prev.HasTicket() || *prev.TicketID != *reg.TicketID)
	if newTicket {
		if _, taken := tx.s.regByTicket[*reg.TicketID]; taken {
			return fmt.Errorf("ticket %s: %w", *reg.TicketID, domain.ErrTicketCollision)
		}
	}

	current.Status = reg.Status
	current.TicketID = cloneString(reg.TicketID)
	current.StockHeld = reg.StockHeld
	current.TeamID = cloneString(reg.TeamID)
	current.UpdatedAt = reg.UpdatedAt
	if newTicket {
		tx.s.regByTicket[*reg.TicketID] = reg.ID
	}

	tx.undo = append(tx.undo, func() {
		if newTicket {
			delete(tx.s.regByTicket, *reg.TicketID)
		}
		*current = *prev
	})
	return nil
}

func (tx *memTx) TeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	t, ok := tx.s.teams[teamID]
	if !ok || t.EventID != tx.event.ID {
		return nil, domain.ErrNotFound
	}
	return cloneTeam(t), nil
}

func (tx *memTx) TeamByParticipant(ctx context.Context, participantID string) (*domain.Team, error) {
	for _, t := range tx.s.teams {
		if t.EventID == tx.event.ID && t.HasMember(participantID) {
			return cloneTeam(t), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (tx *memTx) CreateTeam(ctx context.Context, team *domain.Team) error {
	code := strings.ToUpper(team.InviteCode)
	if _, taken := tx.s.teamByCode[code]; taken {
		return fmt.Errorf("invite code %s already in use", code)
	}
	team.ID = uuid.NewString()
	team.InviteCode = code
	tx.s.teams[team.ID] = cloneTeam(team)
	tx.s.teamByCode[code] = team.ID
	tx.undo = append(tx.undo, func() {
		delete(tx.s.teams, team.ID)
		delete(tx.s.teamByCode, code)
	})
	return nil
}

func (tx *memTx) AddTeamMember(ctx context.Context, teamID, participantID string) error {
	t, ok := tx.s.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	prev := t.Members
	t.Members = append(prev[:len(prev):len(prev)], participantID)
	tx.undo = append(tx.undo, func() { t.Members = prev })
	return nil
}

func (tx *memTx) RemoveTeamMember(ctx context.Context, teamID, participantID string) error {
	t, ok := tx.s.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	prev := t.Members
	next := make([]string, 0, len(prev))
	for _, m := range prev {
		if m != participantID {
			next = append(next, m)
		}
	}
	t.Members = next
	tx.undo = append(tx.undo, func() { t.Members = prev })
	return nil
}

func (tx *memTx) SetTeamLeader(ctx context.Context, teamID, leaderID string) error {
	t, ok := tx.s.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	prev := t.LeaderID
	t.LeaderID = leaderID
	tx.undo = append(tx.undo, func() { t.LeaderID = prev })
	return nil
}

func (tx *memTx) DeleteTeam(ctx context.Context, teamID string) error {
	t, ok := tx.s.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(tx.s.teams, teamID)
	delete(tx.s.teamByCode, t.InviteCode)
	tx.undo = append(tx.undo, func() {
		tx.s.teams[teamID] = t
		tx.s.teamByCode[t.InviteCode] = teamID
	})
	return nil
}
