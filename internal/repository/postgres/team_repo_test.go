package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

var teamCols = []string{"id", "event_id", "name", "leader_id", "invite_code", "created_at"}

func TestTeamRepository_GetByInviteCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "code is matched upper-cased",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM teams t WHERE t.invite_code = \$1`).
					WithArgs("ABC234").
					WillReturnRows(sqlmock.NewRows(teamCols).AddRow("team-1", "ev-1", "Bolts", "user-1", "ABC234", fixedAt))
				mock.ExpectQuery(`SELECT team_id, participant_id FROM team_members WHERE team_id = ANY\(\$1\) ORDER BY seq`).
					WithArgs(pq.Array([]string{"team-1"})).
					WillReturnRows(sqlmock.NewRows([]string{"team_id", "participant_id"}).
						AddRow("team-1", "user-1").
						AddRow("team-1", "user-2"))
			},
		},
		{
			name: "unknown code",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM teams t WHERE t.invite_code = \$1`).
					WithArgs("ABC234").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			team, err := NewTeamRepository(db).GetByInviteCode(ctx, "abc234")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, []string{"user-1", "user-2"}, team.Members)
				require.Equal(t, "user-1", team.LeaderID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTeamRepository_InviteCodeExists(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM teams WHERE invite_code = \$1\)`).
		WithArgs("XYZ789").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := NewTeamRepository(db).InviteCodeExists(ctx, "xyz789")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_ListByEvent(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM teams t WHERE t.event_id = \$1 ORDER BY t.created_at`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(teamCols).
			AddRow("team-1", "ev-1", "Bolts", "user-1", "ABC234", fixedAt).
			AddRow("team-2", "ev-1", "Sparks", "user-3", "DEF567", fixedAt))
	mock.ExpectQuery(`FROM team_members WHERE team_id = ANY\(\$1\) ORDER BY seq`).
		WithArgs(pq.Array([]string{"team-1", "team-2"})).
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "participant_id"}).
			AddRow("team-1", "user-1").
			AddRow("team-2", "user-3").
			AddRow("team-1", "user-2"))

	teams, err := NewTeamRepository(db).ListByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	require.Equal(t, []string{"user-1", "user-2"}, teams[0].Members)
	require.Equal(t, []string{"user-3"}, teams[1].Members)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_ListByEvent_empty(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM teams t WHERE t.event_id = \$1`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(teamCols))

	teams, err := NewTeamRepository(db).ListByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Empty(t, teams)
	require.NoError(t, mock.ExpectationsWereMet())
}
