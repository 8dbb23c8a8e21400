package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"campusfest/internal/domain"
)

const teamColumns = `t.id, t.event_id, t.name, t.leader_id, t.invite_code, t.created_at`

type teamRepository struct {
	DB *sql.DB
}

func NewTeamRepository(db *sql.DB) domain.TeamRepository {
	return &teamRepository{DB: db}
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return getTeam(ctx, r.DB, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, id)
}

func (r *teamRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	return getTeam(ctx, r.DB, `SELECT `+teamColumns+` FROM teams t WHERE t.invite_code = $1`, strings.ToUpper(code))
}

func (r *teamRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE invite_code = $1)`, strings.ToUpper(code)).Scan(&exists)
	return exists, err
}

func (r *teamRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.event_id = $1 ORDER BY t.created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	teams := make([]*domain.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachMembers(ctx, r.DB, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func getTeam(ctx context.Context, q querier, query string, args ...any) (*domain.Team, error) {
	t, err := scanTeam(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := attachMembers(ctx, q, []*domain.Team{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// attachMembers fills Members in join order for every team in one query.
func attachMembers(ctx context.Context, q querier, teams []*domain.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]string, len(teams))
	byID := make(map[string]*domain.Team, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
		byID[t.ID] = t
		t.Members = []string{}
	}
	rows, err := q.QueryContext(ctx, `SELECT team_id, participant_id FROM team_members WHERE team_id = ANY($1) ORDER BY seq`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID, participantID string
		if err := rows.Scan(&teamID, &participantID); err != nil {
			return err
		}
		if t, ok := byID[teamID]; ok {
			t.Members = append(t.Members, participantID)
		}
	}
	return rows.Err()
}

func scanTeam(s scanner) (*domain.Team, error) {
	t := &domain.Team{}
	if err := s.Scan(&t.ID, &t.EventID, &t.Name, &t.LeaderID, &t.InviteCode, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
