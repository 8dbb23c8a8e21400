package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campusfest/internal/domain"
)

type inventoryStore struct {
	DB *sql.DB
}

// NewInventoryStore returns the transactional unit of work behind reservations, approvals and teams.
func NewInventoryStore(db *sql.DB) domain.InventoryStore {
	return &inventoryStore{DB: db}
}

// WithEventLock runs fn in a transaction holding row locks on the event and its merchandise.
// Concurrent callers for the same event queue on the event row until commit or rollback.
func (s *inventoryStore) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.InventoryTx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ev, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}
	if err := attachItems(ctx, tx, []*domain.Event{ev}, "FOR UPDATE"); err != nil {
		return fmt.Errorf("lock merchandise: %w", err)
	}

	if err := fn(&pgTx{tx: tx, event: ev}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgTx keeps the locked event snapshot in step with every write it issues.
type pgTx struct {
	tx    *sql.Tx
	event *domain.Event
}

func (t *pgTx) Event() *domain.Event { return t.event }

func (t *pgTx) AdjustStock(ctx context.Context, itemID string, delta int) error {
	item := t.event.Item(itemID)
	if item == nil {
		return domain.ErrItemNotFound
	}
	if item.Stock+delta < 0 {
		return fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, item.Name, item.Stock)
	}
	query := `UPDATE merchandise_items SET stock = stock + $1 WHERE id = $2 AND event_id = $3 AND stock + $1 >= 0`
	result, err := t.tx.ExecContext(ctx, query, delta, itemID, t.event.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, item.Name, item.Stock)
	}
	item.Stock += delta
	return nil
}

func (t *pgTx) AdjustConfirmed(ctx context.Context, delta int) error {
	query := `
		UPDATE events SET current_registrations = GREATEST(current_registrations + $1, 0)
		WHERE id = $2
		RETURNING current_registrations
	`
	return t.tx.QueryRowContext(ctx, query, delta, t.event.ID).Scan(&t.event.CurrentRegistrations)
}

func (t *pgTx) RegistrationByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 AND event_id = $2`
	return getRegistration(ctx, t.tx, query, id, t.event.ID)
}

func (t *pgTx) RegistrationByParticipant(ctx context.Context, participantID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1 AND event_id = $2`
	return getRegistration(ctx, t.tx, query, participantID, t.event.ID)
}

func (t *pgTx) CreateRegistration(ctx context.Context, reg *domain.Registration) error {
	return insertRegistration(ctx, t.tx, reg)
}

func (t *pgTx) UpdateRegistration(ctx context.Context, reg *domain.Registration) error {
	query := `
		UPDATE registrations
		SET status = $1, ticket_id = $2, stock_held = $3, team_id = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := t.tx.ExecContext(ctx, query,
		reg.Status, nullString(reg.TicketID), reg.StockHeld, nullString(reg.TeamID), reg.UpdatedAt, reg.ID)
	if err != nil {
		if isUniqueViolation(err, registrationTicketConstraint) {
			return fmt.Errorf("ticket %s: %w", *reg.TicketID, domain.ErrTicketCollision)
		}
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) TeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	return getTeam(ctx, t.tx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1 AND t.event_id = $2`, teamID, t.event.ID)
}

func (t *pgTx) TeamByParticipant(ctx context.Context, participantID string) (*domain.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE t.event_id = $1 AND m.participant_id = $2
	`
	return getTeam(ctx, t.tx, query, t.event.ID, participantID)
}

func (t *pgTx) CreateTeam(ctx context.Context, team *domain.Team) error {
	team.InviteCode = strings.ToUpper(team.InviteCode)
	query := `
		INSERT INTO teams (event_id, name, leader_id, invite_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := t.tx.QueryRowContext(ctx, query, team.EventID, team.Name, team.LeaderID, team.InviteCode, team.CreatedAt).Scan(&team.ID); err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("invite code %s already in use: %w", team.InviteCode, err)
		}
		return err
	}
	for _, m := range team.Members {
		if err := t.AddTeamMember(ctx, team.ID, m); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) AddTeamMember(ctx context.Context, teamID, participantID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO team_members (team_id, participant_id) VALUES ($1, $2)`, teamID, participantID)
	if isUniqueViolation(err, "") {
		return domain.ErrAlreadyInTeam
	}
	return err
}

func (t *pgTx) RemoveTeamMember(ctx context.Context, teamID, participantID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND participant_id = $2`, teamID, participantID)
	return err
}

func (t *pgTx) SetTeamLeader(ctx context.Context, teamID, leaderID string) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE teams SET leader_id = $1 WHERE id = $2`, leaderID, teamID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteTeam(ctx context.Context, teamID string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
