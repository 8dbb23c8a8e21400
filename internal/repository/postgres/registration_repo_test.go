package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

var registrationCols = []string{"id", "event_id", "participant_id", "status", "ticket_id", "attended", "attended_at",
	"merchandise_selections", "form_responses", "payment_proof_ref", "total_cost", "stock_held", "team_id", "created_at", "updated_at"}

func registrationRow(id, status string, ticket any) *sqlmock.Rows {
	return sqlmock.NewRows(registrationCols).AddRow(
		id, "ev-1", "user-1", status, ticket, false, nil,
		[]byte(`[{"item_id":"item-1","item_name":"Fest Tee","quantity":2,"variant":{"Size":"M"},"unit_price_at_purchase":300}]`),
		[]byte(`{"college":"NIT","year":3,"tracks":["ai","web"]}`),
		nil, int64(600), true, nil, fixedAt, fixedAt,
	)
}

func TestRegistrationRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success decodes selections and form",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM registrations WHERE id = \$1`).
					WithArgs("reg-1").
					WillReturnRows(registrationRow("reg-1", "pending", nil))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM registrations WHERE id = \$1`).
					WithArgs("reg-1").
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
			reg, err := NewRegistrationRepository(db).GetByID(ctx, "reg-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, domain.StatusPending, reg.Status)
				require.Nil(t, reg.TicketID)
				require.Nil(t, reg.TeamID)
				require.True(t, reg.StockHeld)
				require.Len(t, reg.MerchandiseSelections, 1)
				require.Equal(t, "M", reg.MerchandiseSelections[0].Variant["Size"])
				require.Equal(t, domain.StringValue("NIT"), reg.FormResponses["college"])
				require.Equal(t, domain.NumberValue(3), reg.FormResponses["year"])
				require.Equal(t, domain.ListValue("ai", "web"), reg.FormResponses["tracks"])
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_TicketExists(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM registrations WHERE ticket_id = \$1\)`).
		WithArgs("FEST-0A1B2C3D").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewRegistrationRepository(db).TicketExists(ctx, "FEST-0A1B2C3D")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_ListByEvent(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations WHERE event_id = \$1 AND \(\$2 = '' OR status = \$2\)`).
		WithArgs("ev-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM registrations\s+WHERE event_id = \$1 AND \(\$2 = '' OR status = \$2\)\s+ORDER BY created_at, id\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("ev-1", "pending", 2, 2).
		WillReturnRows(registrationRow("reg-3", "pending", nil))

	regs, total, err := NewRegistrationRepository(db).ListByEvent(ctx, "ev-1",
		domain.RegistrationFilter{Status: domain.StatusPending}, domain.PaginationParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, regs, 1)
	require.Equal(t, "reg-3", regs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_ListByParticipant(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM registrations WHERE participant_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(registrationCols))

	regs, err := NewRegistrationRepository(db).ListByParticipant(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, regs)
	require.Empty(t, regs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_UpdatePaymentProof(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "pending and owned",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(registrationCols).AddRow(
					"reg-1", "ev-1", "user-1", "pending", nil, false, nil, []byte(`[]`), []byte(`{}`),
					"upi-991", int64(100), false, nil, fixedAt, fixedAt)
				mock.ExpectQuery(`UPDATE registrations SET payment_proof_ref = \$1, updated_at = \$2\s+WHERE id = \$3 AND participant_id = \$4 AND status = 'pending'`).
					WithArgs("upi-991", fixedAt, "reg-1", "user-1").
					WillReturnRows(rows)
			},
		},
		{
			name: "condition not met",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE registrations SET payment_proof_ref`).
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
			reg, err := NewRegistrationRepository(db).UpdatePaymentProof(ctx, "reg-1", "user-1", "upi-991", fixedAt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, reg.PaymentProofRef)
				require.Equal(t, "upi-991", *reg.PaymentProofRef)
				require.Empty(t, reg.MerchandiseSelections)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_MarkAttended(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "first scan",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(registrationCols).AddRow(
					"reg-1", "ev-1", "user-1", "confirmed", "FEST-0A1B2C3D", true, fixedAt, []byte(`[]`), []byte(`{}`),
					nil, int64(0), false, nil, fixedAt, fixedAt)
				mock.ExpectQuery(`UPDATE registrations SET attended = TRUE, attended_at = \$1, updated_at = \$1\s+WHERE ticket_id = \$2 AND attended = FALSE`).
					WithArgs(fixedAt, "FEST-0A1B2C3D").
					WillReturnRows(rows)
			},
		},
		{
			name: "already attended",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE registrations SET attended = TRUE`).
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
			reg, err := NewRegistrationRepository(db).MarkAttended(ctx, "FEST-0A1B2C3D", fixedAt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.True(t, reg.Attended)
				require.NotNil(t, reg.AttendedAt)
				require.Equal(t, "FEST-0A1B2C3D", *reg.TicketID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
