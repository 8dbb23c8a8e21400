package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusfest/internal/domain"
)

const registrationColumns = `id, event_id, participant_id, status, ticket_id, attended, attended_at,
		merchandise_selections, form_responses, payment_proof_ref, total_cost, stock_held, team_id, created_at, updated_at`

const (
	registrationPairConstraint   = "registrations_event_participant_key"
	registrationTicketConstraint = "registrations_ticket_key"
)

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository returns the unlocked read and conditional-update paths for registrations.
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return getRegistration(ctx, r.DB, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

func (r *registrationRepository) GetByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1 AND event_id = $2`
	return getRegistration(ctx, r.DB, query, participantID, eventID)
}

func (r *registrationRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Registration, error) {
	return getRegistration(ctx, r.DB, `SELECT `+registrationColumns+` FROM registrations WHERE ticket_id = $1`, ticketID)
}

func (r *registrationRepository) TicketExists(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE ticket_id = $1)`, ticketID).Scan(&exists)
	return exists, err
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND ($2 = '' OR status = $2)`
	if err := r.DB.QueryRowContext(ctx, countQuery, eventID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, string(filter.Status), limitArg(params.PageSize), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	regs, err := collectRegistrations(rows)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

func (r *registrationRepository) UpdatePaymentProof(ctx context.Context, id, participantID, proofRef string, now time.Time) (*domain.Registration, error) {
	query := `
		UPDATE registrations SET payment_proof_ref = $1, updated_at = $2
		WHERE id = $3 AND participant_id = $4 AND status = 'pending'
		RETURNING ` + registrationColumns
	return getRegistration(ctx, r.DB, query, proofRef, now, id, participantID)
}

func (r *registrationRepository) MarkAttended(ctx context.Context, ticketID string, at time.Time) (*domain.Registration, error) {
	query := `
		UPDATE registrations SET attended = TRUE, attended_at = $1, updated_at = $1
		WHERE ticket_id = $2 AND attended = FALSE
		RETURNING ` + registrationColumns
	return getRegistration(ctx, r.DB, query, at, ticketID)
}

func getRegistration(ctx context.Context, q querier, query string, args ...any) (*domain.Registration, error) {
	reg, err := scanRegistration(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func collectRegistrations(rows *sql.Rows) ([]*domain.Registration, error) {
	defer rows.Close()
	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func scanRegistration(s scanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var ticket, proof, team sql.NullString
	var attendedAt sql.NullTime
	var selections, form []byte
	err := s.Scan(
		&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.Status, &ticket, &reg.Attended, &attendedAt,
		&selections, &form, &proof, &reg.TotalCost, &reg.StockHeld, &team, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.TicketID = stringPtr(ticket)
	reg.AttendedAt = timePtr(attendedAt)
	reg.PaymentProofRef = stringPtr(proof)
	reg.TeamID = stringPtr(team)
	if err := decodeJSON(selections, &reg.MerchandiseSelections); err != nil {
		return nil, fmt.Errorf("decode merchandise selections: %w", err)
	}
	if err := decodeJSON(form, &reg.FormResponses); err != nil {
		return nil, fmt.Errorf("decode form responses: %w", err)
	}
	if reg.MerchandiseSelections == nil {
		reg.MerchandiseSelections = []domain.MerchandiseSelection{}
	}
	if reg.FormResponses == nil {
		reg.FormResponses = domain.FormResponses{}
	}
	return reg, nil
}

func insertRegistration(ctx context.Context, q querier, reg *domain.Registration) error {
	selections, err := json.Marshal(reg.MerchandiseSelections)
	if err != nil {
		return fmt.Errorf("encode merchandise selections: %w", err)
	}
	form, err := json.Marshal(reg.FormResponses)
	if err != nil {
		return fmt.Errorf("encode form responses: %w", err)
	}
	query := `
		INSERT INTO registrations (event_id, participant_id, status, ticket_id, merchandise_selections, form_responses,
			total_cost, stock_held, team_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = q.QueryRowContext(ctx, query,
		reg.EventID, reg.ParticipantID, reg.Status, nullString(reg.TicketID), selections, form,
		reg.TotalCost, reg.StockHeld, nullString(reg.TeamID), reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err, registrationPairConstraint):
			return domain.ErrDuplicateRegistration
		case isUniqueViolation(err, registrationTicketConstraint):
			return fmt.Errorf("ticket %s: %w", *reg.TicketID, domain.ErrTicketCollision)
		}
		return err
	}
	return nil
}
