package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"campusfest/internal/domain"
)

const eventColumns = `id, organizer_id, name, description, kind, fee, capacity, eligibility, eligible_class,
		team_size_max, starts_at, ends_at, deadline, form_fields, current_registrations, created_at, updated_at`

const itemColumns = `id, event_id, name, unit_price, stock, per_user_limit, variant_groups, position`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	form, err := json.Marshal(e.FormFields)
	if err != nil {
		return fmt.Errorf("encode form fields: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (organizer_id, name, description, kind, fee, capacity, eligibility, eligible_class,
			team_size_max, starts_at, ends_at, deadline, form_fields, current_registrations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $15)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		e.OrganizerID, e.Name, e.Description, e.Kind, e.Fee, e.Capacity, e.Eligibility, e.EligibleClass,
		e.TeamSizeMax, nullTime(e.StartsAt), nullTime(e.EndsAt), nullTime(e.Deadline), form, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return err
	}
	if err := insertItems(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := attachItems(ctx, r.DB, []*domain.Event{e}, ""); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns events newest first with their merchandise.
func (r *eventRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limitArg(params.PageSize), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := attachItems(ctx, r.DB, events, ""); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) UpdateDetails(ctx context.Context, eventID string, upd domain.EventDetailsUpdate) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.StartsAt != nil {
		add("starts_at", *upd.StartsAt)
	}
	if upd.EndsAt != nil {
		add("ends_at", *upd.EndsAt)
	}
	if upd.Deadline != nil {
		add("deadline", *upd.Deadline)
	}
	if n == 1 {
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := attachItems(ctx, r.DB, []*domain.Event{e}, ""); err != nil {
		return nil, err
	}
	return e, nil
}

// ReplaceStructure locks the event row, refuses once any registration exists,
// and rewrites the structural columns and the merchandise set. Items get fresh IDs.
func (r *eventRepository) ReplaceStructure(ctx context.Context, e *domain.Event) error {
	form, err := json.Marshal(e.FormFields)
	if err != nil {
		return fmt.Errorf("encode form fields: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, e.ID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	var registered bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1)`, e.ID).Scan(&registered); err != nil {
		return err
	}
	if registered {
		return domain.ErrEventLocked
	}

	query := `
		UPDATE events
		SET kind = $1, fee = $2, capacity = $3, eligibility = $4, eligible_class = $5,
			team_size_max = $6, form_fields = $7, updated_at = $8
		WHERE id = $9
	`
	if _, err := tx.ExecContext(ctx, query,
		e.Kind, e.Fee, e.Capacity, e.Eligibility, e.EligibleClass, e.TeamSizeMax, form, e.UpdatedAt, e.ID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM merchandise_items WHERE event_id = $1`, e.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, q querier, e *domain.Event) error {
	query := `
		INSERT INTO merchandise_items (event_id, name, unit_price, stock, per_user_limit, variant_groups, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	for i, it := range e.MerchandiseItems {
		groups, err := json.Marshal(it.VariantGroups)
		if err != nil {
			return fmt.Errorf("encode variant groups: %w", err)
		}
		it.EventID = e.ID
		it.Position = i
		if err := q.QueryRowContext(ctx, query, e.ID, it.Name, it.UnitPrice, it.Stock, it.PerUserLimit, groups, i).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

// attachItems loads the merchandise of every event in one query. lock is appended verbatim (e.g. "FOR UPDATE").
func attachItems(ctx context.Context, q querier, events []*domain.Event, lock string) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, len(events))
	byID := make(map[string]*domain.Event, len(events))
	for i, e := range events {
		ids[i] = e.ID
		byID[e.ID] = e
		e.MerchandiseItems = []*domain.MerchandiseItem{}
	}
	query := `SELECT ` + itemColumns + ` FROM merchandise_items WHERE event_id = ANY($1) ORDER BY position ` + lock
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		it := &domain.MerchandiseItem{}
		var groups []byte
		if err := rows.Scan(&it.ID, &it.EventID, &it.Name, &it.UnitPrice, &it.Stock, &it.PerUserLimit, &groups, &it.Position); err != nil {
			return err
		}
		if err := decodeJSON(groups, &it.VariantGroups); err != nil {
			return fmt.Errorf("decode variant groups: %w", err)
		}
		if it.VariantGroups == nil {
			it.VariantGroups = []domain.VariantGroup{}
		}
		if e, ok := byID[it.EventID]; ok {
			e.MerchandiseItems = append(e.MerchandiseItems, it)
		}
	}
	return rows.Err()
}

func scanEvent(s scanner) (*domain.Event, error) {
	e := &domain.Event{}
	var startsAt, endsAt, deadline sql.NullTime
	var form []byte
	err := s.Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Kind, &e.Fee, &e.Capacity, &e.Eligibility, &e.EligibleClass,
		&e.TeamSizeMax, &startsAt, &endsAt, &deadline, &form, &e.CurrentRegistrations, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.StartsAt = timePtr(startsAt)
	e.EndsAt = timePtr(endsAt)
	e.Deadline = timePtr(deadline)
	if err := decodeJSON(form, &e.FormFields); err != nil {
		return nil, fmt.Errorf("decode form fields: %w", err)
	}
	if e.FormFields == nil {
		e.FormFields = []domain.FormField{}
	}
	return e, nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
