package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusfest/internal/domain"
)

// roleRepository reads the seeded roles table (participant, organizer, admin).
type roleRepository struct {
	DB *sql.DB
}

func NewRoleRepository(db *sql.DB) domain.RoleRepository {
	return &roleRepository{DB: db}
}

func (r *roleRepository) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	var role domain.Role
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, code
		FROM roles
		WHERE code = $1`, code).Scan(&role.ID, &role.Code)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, domain.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get role %s: %w", code, err)
	}
	return &role, nil
}

// ListByUserID returns the user's roles ordered by code; a user without roles gets an empty slice.
func (r *roleRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.code
		FROM roles r
		INNER JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*domain.Role, 0, 2)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Code); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}
