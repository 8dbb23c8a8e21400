package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

var (
	eventCols = []string{"id", "organizer_id", "name", "description", "kind", "fee", "capacity", "eligibility", "eligible_class",
		"team_size_max", "starts_at", "ends_at", "deadline", "form_fields", "current_registrations", "created_at", "updated_at"}
	itemCols = []string{"id", "event_id", "name", "unit_price", "stock", "per_user_limit", "variant_groups", "position"}
	fixedAt  = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func eventRow(id string, current int) *sqlmock.Rows {
	return sqlmock.NewRows(eventCols).AddRow(
		id, "org-1", "Fest Kickoff", "", "standard", int64(100), 50, "open", "",
		0, nil, nil, fixedAt, []byte(`[{"key":"college","label":"College","kind":"string","required":true}]`), current, fixedAt, fixedAt,
	)
}

func itemRows(eventID string) *sqlmock.Rows {
	return sqlmock.NewRows(itemCols).
		AddRow("item-1", eventID, "Fest Tee", int64(300), 10, 2, []byte(`[{"name":"Size","options":["S","M"]}]`), 0)
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO events`).
					WithArgs("org-1", "Fest Kickoff", "", "standard", int64(100), 50, "open", "", 0,
						nil, nil, nil, sqlmock.AnyArg(), fixedAt, fixedAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`INSERT INTO merchandise_items`).
					WithArgs("ev-1", "Fest Tee", int64(300), 10, 2, sqlmock.AnyArg(), 0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("item-1"))
				mock.ExpectCommit()
			},
		},
		{
			name: "item insert fails rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`INSERT INTO merchandise_items`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			ev := &domain.Event{
				OrganizerID: "org-1", Name: "Fest Kickoff", Kind: domain.EventStandard, Fee: 100, Capacity: 50,
				Eligibility: domain.EligibilityOpen, FormFields: []domain.FormField{},
				MerchandiseItems: []*domain.MerchandiseItem{{Name: "Fest Tee", UnitPrice: 300, Stock: 10, PerUserLimit: 2}},
				CreatedAt:        fixedAt, UpdatedAt: fixedAt,
			}
			err = NewEventRepository(db).Create(ctx, ev)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, "ev-1", ev.ID)
				require.Equal(t, "item-1", ev.MerchandiseItems[0].ID)
				require.Equal(t, "ev-1", ev.MerchandiseItems[0].EventID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 3))
				mock.ExpectQuery(`SELECT (.+) FROM merchandise_items WHERE event_id = ANY\(\$1\)`).
					WithArgs(pq.Array([]string{"ev-1"})).
					WillReturnRows(itemRows("ev-1"))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1`).
					WithArgs("missing").
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
			id := "ev-1"
			if tt.wantErr != nil {
				id = "missing"
			}
			ev, err := NewEventRepository(db).GetByID(ctx, id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, domain.EventStandard, ev.Kind)
				require.Equal(t, 3, ev.CurrentRegistrations)
				require.NotNil(t, ev.Deadline)
				require.Nil(t, ev.StartsAt)
				require.Len(t, ev.FormFields, 1)
				require.True(t, ev.FormFields[0].Required)
				require.Len(t, ev.MerchandiseItems, 1)
				require.Equal(t, []string{"S", "M"}, ev.MerchandiseItems[0].VariantGroups[0].Options)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_List(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT (.+) FROM events ORDER BY created_at DESC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 5).
		WillReturnRows(eventRow("ev-6", 0))
	mock.ExpectQuery(`FROM merchandise_items`).
		WithArgs(pq.Array([]string{"ev-6"})).
		WillReturnRows(sqlmock.NewRows(itemCols))

	events, total, err := NewEventRepository(db).List(ctx, domain.PaginationParams{Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, 7, total)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].MerchandiseItems)
	require.Empty(t, events[0].MerchandiseItems)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	name := "Fest Finale"

	tests := []struct {
		name    string
		upd     domain.EventDetailsUpdate
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "name only",
			upd:  domain.EventDetailsUpdate{Name: &name},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events SET updated_at = NOW\(\), name = \$1\s+WHERE id = \$2`).
					WithArgs("Fest Finale", "ev-1").
					WillReturnRows(eventRow("ev-1", 0))
				mock.ExpectQuery(`FROM merchandise_items`).
					WillReturnRows(itemRows("ev-1"))
			},
		},
		{
			name: "nothing to change reads current row",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 0))
				mock.ExpectQuery(`FROM merchandise_items`).
					WillReturnRows(itemRows("ev-1"))
			},
		},
		{
			name: "not found",
			upd:  domain.EventDetailsUpdate{Name: &name},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE events`).
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
			ev, err := NewEventRepository(db).UpdateDetails(ctx, "ev-1", tt.upd)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, "ev-1", ev.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_ReplaceStructure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM events WHERE id = \$1 FOR UPDATE`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM registrations WHERE event_id = \$1\)`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec(`UPDATE events`).
					WithArgs("merchandise", int64(0), 0, "open", "", 0, sqlmock.AnyArg(), fixedAt, "ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`DELETE FROM merchandise_items WHERE event_id = \$1`).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectQuery(`INSERT INTO merchandise_items`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("item-9"))
				mock.ExpectCommit()
			},
		},
		{
			name: "locked once registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM events WHERE id = \$1 FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrEventLocked,
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM events WHERE id = \$1 FOR UPDATE`).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
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
			ev := &domain.Event{
				ID: "ev-1", Kind: domain.EventMerchandise, Eligibility: domain.EligibilityOpen,
				FormFields:       []domain.FormField{},
				MerchandiseItems: []*domain.MerchandiseItem{{Name: "Mug", Stock: 4}},
				UpdatedAt:        fixedAt,
			}
			err = NewEventRepository(db).ReplaceStructure(ctx, ev)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, "item-9", ev.MerchandiseItems[0].ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
