package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestAttendanceController_MarkAttendance(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{name: "first scan", body: `{"ticket_id":"FEST-0A1B2C3D"}`, wantStatus: http.StatusOK},
		{name: "missing ticket", body: `{"ticket_id":""}`, wantStatus: http.StatusBadRequest},
		{name: "unknown ticket", body: `{"ticket_id":"FEST-FFFFFFFF"}`, svcErr: domain.ErrTicketNotFound, wantStatus: http.StatusNotFound},
		{name: "second scan", body: `{"ticket_id":"FEST-0A1B2C3D"}`, svcErr: domain.ErrAlreadyAttended, wantStatus: http.StatusConflict},
		{name: "revoked", body: `{"ticket_id":"FEST-0A1B2C3D"}`, svcErr: domain.ErrTicketRevoked, wantStatus: http.StatusConflict},
		{name: "other organizer", body: `{"ticket_id":"FEST-0A1B2C3D"}`, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := domain.NewRegistration(testEventID, "user-1", domain.StatusConfirmed, fixedNow)
			reg.Attended = true
			svc := &fakeRegistrations{err: tt.svcErr}
			if tt.svcErr == nil {
				svc.record = &domain.AttendanceRecord{ParticipantID: "user-1", Event: &domain.Event{ID: testEventID}, Registration: reg}
			}
			c := NewAttendanceController(testLogger(), svc)

			rr := serve(t, "POST /attendance", c.MarkAttendance, http.MethodPost, "/attendance", tt.body, organizer)
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "FEST-0A1B2C3D", svc.gotTicket)
			}
		})
	}
}
