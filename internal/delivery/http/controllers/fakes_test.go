package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/delivery/http/middleware"
	"campusfest/internal/domain"
)

const (
	testEventID        = "6f1c2a7e-3b4d-4f5a-8c9d-0e1f2a3b4c5d"
	testRegistrationID = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
	testTeamID         = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var organizer = &domain.Principal{UserID: "org-1", Email: "org@campus.edu", Roles: []string{domain.RoleOrganizer}}
var participant = &domain.Principal{UserID: "user-1", Email: "asha@campus.edu", EligibilityClass: "ug", Roles: []string{domain.RoleParticipant}}

// serve routes one request through a mux so path values resolve. A nil caller leaves the request unauthenticated.
func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target string, body any, caller *domain.Principal) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(middleware.SetPrincipal(req.Context(), caller))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) helpers.APIError {
	t.Helper()
	var resp helpers.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return *resp.Error
}

type fakeCatalog struct {
	createErr error
	event     *domain.Event
	events    []*domain.Event
	total     int
	err       error

	gotEvent  *domain.Event
	gotUpdate domain.EventDetailsUpdate
	gotParams domain.PaginationParams
}

func (f *fakeCatalog) CreateEvent(_ context.Context, _ *domain.Principal, e *domain.Event) error {
	f.gotEvent = e
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = testEventID
	return nil
}

func (f *fakeCatalog) GetEvent(_ context.Context, _ string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeCatalog) ListEvents(_ context.Context, p domain.PaginationParams) ([]*domain.Event, int, error) {
	f.gotParams = p
	return f.events, f.total, f.err
}

func (f *fakeCatalog) UpdateEventDetails(_ context.Context, _ string, _ *domain.Principal, upd domain.EventDetailsUpdate) (*domain.Event, error) {
	f.gotUpdate = upd
	return f.event, f.err
}

func (f *fakeCatalog) UpdateEventStructure(_ context.Context, _ string, _ *domain.Principal, e *domain.Event) (*domain.Event, error) {
	f.gotEvent = e
	return f.event, f.err
}

type fakeReservations struct {
	reg *domain.Registration
	err error
	got domain.ReservationRequest
}

func (f *fakeReservations) Reserve(_ context.Context, _ *domain.Principal, req domain.ReservationRequest) (*domain.Registration, error) {
	f.got = req
	return f.reg, f.err
}

type fakeApprovals struct {
	reg       *domain.Registration
	err       error
	gotStatus domain.Status
}

func (f *fakeApprovals) SetStatus(_ context.Context, _ string, status domain.Status, _ *domain.Principal) (*domain.Registration, error) {
	f.gotStatus = status
	return f.reg, f.err
}

func (f *fakeApprovals) Cancel(_ context.Context, _ string, _ *domain.Principal) (*domain.Registration, error) {
	return f.reg, f.err
}

type fakeRegistrations struct {
	reg       *domain.Registration
	regs      []*domain.Registration
	mine      []*domain.RegistrationWithEvent
	record    *domain.AttendanceRecord
	total     int
	err       error
	gotFilter domain.RegistrationFilter
	gotTicket string
}

func (f *fakeRegistrations) GetRegistration(_ context.Context, _ string, _ *domain.Principal) (*domain.Registration, error) {
	return f.reg, f.err
}

func (f *fakeRegistrations) ListByEvent(_ context.Context, _ string, _ *domain.Principal, filter domain.RegistrationFilter, _ domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.gotFilter = filter
	return f.regs, f.total, f.err
}

func (f *fakeRegistrations) ListMine(_ context.Context, _ *domain.Principal) ([]*domain.RegistrationWithEvent, error) {
	return f.mine, f.err
}

func (f *fakeRegistrations) UpdatePaymentProof(_ context.Context, _ string, _ *domain.Principal, _ string) (*domain.Registration, error) {
	return f.reg, f.err
}

func (f *fakeRegistrations) MarkAttendance(_ context.Context, ticketID string, _ *domain.Principal) (*domain.AttendanceRecord, error) {
	f.gotTicket = ticketID
	return f.record, f.err
}

type fakeTeams struct {
	membership *domain.TeamMembership
	teams      []*domain.Team
	err        error
	gotCode    string
}

func (f *fakeTeams) CreateTeam(_ context.Context, _ *domain.Principal, _, _ string) (*domain.TeamMembership, error) {
	return f.membership, f.err
}

func (f *fakeTeams) JoinTeam(_ context.Context, _ *domain.Principal, code string) (*domain.TeamMembership, error) {
	f.gotCode = code
	return f.membership, f.err
}

func (f *fakeTeams) LeaveTeam(_ context.Context, _ *domain.Principal, _ string) error {
	return f.err
}

func (f *fakeTeams) ListTeams(_ context.Context, _ string) ([]*domain.Team, error) {
	return f.teams, f.err
}

type fakeAuth struct {
	user    *domain.User
	token   string
	err     error
	gotRole string
}

func (f *fakeAuth) SignUp(_ context.Context, _, _, _, _, role string) (*domain.User, error) {
	f.gotRole = role
	return f.user, f.err
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (string, error) {
	return f.token, f.err
}
