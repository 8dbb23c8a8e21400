package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

func TestEventController_CreateEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		caller     *domain.Principal
		svcErr     error
		wantStatus int
	}{
		{
			name: "created with merchandise in order",
			body: `{"name":"Robotics Workshop","fee":200,"capacity":50,"merchandise_items":[
				{"name":"Fest Tee","unit_price":300,"stock":10,"per_user_limit":2,"variant_groups":[{"name":"Size","options":["S","M"]}]},
				{"name":"Badge","unit_price":50,"stock":100}]}`,
			caller:     organizer,
			wantStatus: http.StatusCreated,
		},
		{name: "name required", body: `{"capacity":5}`, caller: organizer, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"X","venue":"Hall"}`, caller: organizer, wantStatus: http.StatusBadRequest},
		{name: "ends before starts", body: `{"name":"X","starts_at":"2026-03-14T10:00:00Z","ends_at":"2026-03-14T09:00:00Z"}`, caller: organizer, wantStatus: http.StatusBadRequest},
		{name: "participant", body: `{"name":"X"}`, caller: participant, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "structural error", body: `{"name":"X","kind":"team"}`, caller: organizer, svcErr: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "unauthenticated", body: `{"name":"X"}`, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalog{createErr: tt.svcErr}
			c := NewEventController(testLogger(), svc)

			rr := serve(t, "POST /events", c.CreateEvent, http.MethodPost, "/events", tt.body, tt.caller)
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusCreated {
				return
			}
			require.Len(t, svc.gotEvent.MerchandiseItems, 2)
			assert.Equal(t, 0, svc.gotEvent.MerchandiseItems[0].Position)
			assert.Equal(t, 1, svc.gotEvent.MerchandiseItems[1].Position)
			assert.Equal(t, "Size", svc.gotEvent.MerchandiseItems[0].VariantGroups[0].Name)

			var resp struct {
				Data domain.Event `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, testEventID, resp.Data.ID)
		})
	}
}

func TestEventController_ListEvents(t *testing.T) {
	svc := &fakeCatalog{events: []*domain.Event{{ID: testEventID, Name: "Open Mic"}}, total: 1}
	c := NewEventController(testLogger(), svc)

	rr := serve(t, "GET /events", c.ListEvents, http.MethodGet, "/events?page_size=500", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 100, svc.gotParams.PageSize)

	var resp struct {
		Data ListEventsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 1, resp.Data.Pagination.Total)
}

func TestEventController_GetEvent(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		svcErr     error
		wantStatus int
	}{
		{name: "found", target: "/events/" + testEventID, wantStatus: http.StatusOK},
		{name: "not a uuid", target: "/events/42", wantStatus: http.StatusBadRequest},
		{name: "missing", target: "/events/" + testEventID, svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewEventController(testLogger(), &fakeCatalog{event: &domain.Event{ID: testEventID}, err: tt.svcErr})
			rr := serve(t, "GET /events/{eventID}", c.GetEvent, http.MethodGet, tt.target, nil, nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestEventController_UpdateEvent(t *testing.T) {
	svc := &fakeCatalog{event: &domain.Event{ID: testEventID, Name: "Renamed"}}
	c := NewEventController(testLogger(), svc)

	rr := serve(t, "PATCH /events/{eventID}", c.UpdateEvent, http.MethodPatch, "/events/"+testEventID,
		`{"name":"Renamed"}`, organizer)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.gotUpdate.Name)
	assert.Equal(t, "Renamed", *svc.gotUpdate.Name)
	assert.Nil(t, svc.gotUpdate.Description)

	rr = serve(t, "PATCH /events/{eventID}", c.UpdateEvent, http.MethodPatch, "/events/"+testEventID,
		`{"name":""}`, organizer)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventController_UpdateEventStructure(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
	}{
		{name: "replaced", wantStatus: http.StatusOK},
		{name: "locked by registrations", svcErr: domain.ErrEventLocked, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalog{event: &domain.Event{ID: testEventID}, err: tt.svcErr}
			c := NewEventController(testLogger(), svc)

			rr := serve(t, "PUT /events/{eventID}/structure", c.UpdateEventStructure, http.MethodPut,
				"/events/"+testEventID+"/structure", `{"kind":"merchandise","merchandise_items":[{"name":"Hoodie","unit_price":900,"stock":5}]}`, organizer)
			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, domain.EventMerchandise, svc.gotEvent.Kind)
			require.Len(t, svc.gotEvent.MerchandiseItems, 1)
		})
	}
}
