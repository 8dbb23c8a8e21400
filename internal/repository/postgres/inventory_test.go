package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

func expectLock(mock sqlmock.Sqlmock, current int) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", current))
	mock.ExpectQuery(`FROM merchandise_items WHERE event_id = ANY\(\$1\) ORDER BY position FOR UPDATE`).
		WithArgs(pq.Array([]string{"ev-1"})).
		WillReturnRows(itemRows("ev-1"))
}

func TestInventoryStore_WithEventLock_commits(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLock(mock, 1)
	mock.ExpectExec(`UPDATE merchandise_items SET stock = stock \+ \$1 WHERE id = \$2 AND event_id = \$3 AND stock \+ \$1 >= 0`).
		WithArgs(-2, "item-1", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE events SET current_registrations = GREATEST\(current_registrations \+ \$1, 0\)`).
		WithArgs(1, "ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_registrations"}).AddRow(2))
	mock.ExpectQuery(`INSERT INTO registrations`).
		WithArgs("ev-1", "user-1", "confirmed", "FEST-0A1B2C3D", sqlmock.AnyArg(), sqlmock.AnyArg(),
			int64(600), true, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-1"))
	mock.ExpectCommit()

	var snapshot *domain.Event
	reg := domain.NewRegistration("ev-1", "user-1", domain.StatusConfirmed, time.Now())
	ticket := "FEST-0A1B2C3D"
	reg.TicketID = &ticket
	reg.TotalCost = 600
	reg.StockHeld = true

	err = NewInventoryStore(db).WithEventLock(ctx, "ev-1", func(tx domain.InventoryTx) error {
		snapshot = tx.Event()
		if err := tx.AdjustStock(ctx, "item-1", -2); err != nil {
			return err
		}
		if err := tx.AdjustConfirmed(ctx, 1); err != nil {
			return err
		}
		return tx.CreateRegistration(ctx, reg)
	})
	require.NoError(t, err)
	require.Equal(t, "reg-1", reg.ID)
	require.Equal(t, 8, snapshot.MerchandiseItems[0].Stock)
	require.Equal(t, 2, snapshot.CurrentRegistrations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryStore_WithEventLock_rolls_back(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		fn      func(tx domain.InventoryTx) error
		wantErr error
	}{
		{
			name: "stock check fails before any write",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				return tx.AdjustStock(ctx, "item-1", -11)
			},
			wantErr: domain.ErrInsufficientStock,
		},
		{
			name: "guarded update affects no row",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectExec(`UPDATE merchandise_items SET stock`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				return tx.AdjustStock(ctx, "item-1", -1)
			},
			wantErr: domain.ErrInsufficientStock,
		},
		{
			name: "unknown item",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				return tx.AdjustStock(ctx, "item-x", 1)
			},
			wantErr: domain.ErrItemNotFound,
		},
		{
			name: "duplicate registration",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: registrationPairConstraint})
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				return tx.CreateRegistration(ctx, domain.NewRegistration("ev-1", "user-1", domain.StatusPending, time.Now()))
			},
			wantErr: domain.ErrDuplicateRegistration,
		},
		{
			name: "ticket collision on insert",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: registrationTicketConstraint})
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				reg := domain.NewRegistration("ev-1", "user-1", domain.StatusConfirmed, time.Now())
				ticket := "FEST-0000BEEF"
				reg.TicketID = &ticket
				return tx.CreateRegistration(ctx, reg)
			},
			wantErr: domain.ErrTicketCollision,
		},
		{
			name: "ticket collision on update",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectExec(`UPDATE registrations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: registrationTicketConstraint})
				mock.ExpectRollback()
			},
			fn: func(tx domain.InventoryTx) error {
				reg := domain.NewRegistration("ev-1", "user-1", domain.StatusConfirmed, time.Now())
				reg.ID = "reg-1"
				ticket := "FEST-0000BEEF"
				reg.TicketID = &ticket
				return tx.UpdateRegistration(ctx, reg)
			},
			wantErr: domain.ErrTicketCollision,
		},
		{
			name: "callback error",
			mock: func(mock sqlmock.Sqlmock) {
				expectLock(mock, 0)
				mock.ExpectRollback()
			},
			fn:      func(tx domain.InventoryTx) error { return boom },
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewInventoryStore(db).WithEventLock(ctx, "ev-1", tt.fn)
			require.ErrorIs(t, err, tt.wantErr)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInventoryStore_WithEventLock_unknown_event(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("ev-404").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err = NewInventoryStore(db).WithEventLock(ctx, "ev-404", func(tx domain.InventoryTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryStore_team_writes(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLock(mock, 0)
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs("ev-1", "Bolts", "user-1", "ABC234", fixedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("team-1"))
	mock.ExpectExec(`INSERT INTO team_members \(team_id, participant_id\) VALUES \(\$1, \$2\)`).
		WithArgs("team-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM teams t\s+JOIN team_members m ON m.team_id = t.id\s+WHERE t.event_id = \$1 AND m.participant_id = \$2`).
		WithArgs("ev-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "leader_id", "invite_code", "created_at"}).
			AddRow("team-1", "ev-1", "Bolts", "user-1", "ABC234", fixedAt))
	mock.ExpectQuery(`SELECT team_id, participant_id FROM team_members WHERE team_id = ANY\(\$1\) ORDER BY seq`).
		WithArgs(pq.Array([]string{"team-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "participant_id"}).AddRow("team-1", "user-1"))
	mock.ExpectExec(`DELETE FROM team_members WHERE team_id = \$1 AND participant_id = \$2`).
		WithArgs("team-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs("team-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewInventoryStore(db).WithEventLock(ctx, "ev-1", func(tx domain.InventoryTx) error {
		team := &domain.Team{EventID: "ev-1", Name: "Bolts", LeaderID: "user-1", Members: []string{"user-1"}, InviteCode: "abc234", CreatedAt: fixedAt}
		if err := tx.CreateTeam(ctx, team); err != nil {
			return err
		}
		found, err := tx.TeamByParticipant(ctx, "user-1")
		if err != nil {
			return err
		}
		require.Equal(t, []string{"user-1"}, found.Members)
		if err := tx.RemoveTeamMember(ctx, found.ID, "user-1"); err != nil {
			return err
		}
		return tx.DeleteTeam(ctx, found.ID)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
