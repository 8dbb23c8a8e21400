package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/domain"
)

// MerchandiseItemInput is one merchandise line of an event structure.
type MerchandiseItemInput struct {
	Name          string                `json:"name"`
	UnitPrice     int64                 `json:"unit_price"`
	Stock         int                   `json:"stock"`
	PerUserLimit  int                   `json:"per_user_limit"`
	VariantGroups []domain.VariantGroup `json:"variant_groups"`
}

// EventStructureRequest holds the fields that lock once the event has registrations.
type EventStructureRequest struct {
	Kind             domain.EventKind       `json:"kind"`
	Fee              int64                  `json:"fee"`
	Capacity         int                    `json:"capacity"`
	Eligibility      domain.EligibilityRule `json:"eligibility"`
	EligibleClass    string                 `json:"eligible_class"`
	TeamSizeMax      int                    `json:"team_size_max"`
	FormFields       []domain.FormField     `json:"form_fields"`
	MerchandiseItems []MerchandiseItemInput `json:"merchandise_items"`
}

func (s EventStructureRequest) apply(e *domain.Event) {
	e.Kind = s.Kind
	e.Fee = s.Fee
	e.Capacity = s.Capacity
	e.Eligibility = s.Eligibility
	e.EligibleClass = s.EligibleClass
	e.TeamSizeMax = s.TeamSizeMax
	e.FormFields = s.FormFields
	e.MerchandiseItems = make([]*domain.MerchandiseItem, 0, len(s.MerchandiseItems))
	for i, it := range s.MerchandiseItems {
		e.MerchandiseItems = append(e.MerchandiseItems, &domain.MerchandiseItem{
			Name:          it.Name,
			UnitPrice:     it.UnitPrice,
			Stock:         it.Stock,
			PerUserLimit:  it.PerUserLimit,
			VariantGroups: it.VariantGroups,
			Position:      i,
		})
	}
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Deadline    *time.Time `json:"deadline"`
	EventStructureRequest
}

// Validate implements Validator. Structural rules are checked by the catalog service.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.StartsAt != nil && c.EndsAt != nil && c.EndsAt.Before(*c.StartsAt) {
		errs = append(errs, "ends_at must not be before starts_at")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Deadline    *time.Time `json:"deadline"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Name != nil && *u.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.StartsAt != nil && u.EndsAt != nil && u.EndsAt.Before(*u.StartsAt) {
		errs = append(errs, "ends_at must not be before starts_at")
	}
	return errs
}

// EventSuccessResponse is the success response envelope carrying one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.CatalogService
}

func NewEventController(logger *slog.Logger, svc domain.CatalogService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Organizer-only. Creates a standard, merchandise or team event with its form and merchandise.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event definition"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	event := &domain.Event{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Deadline:    req.Deadline,
	}
	req.EventStructureRequest.apply(event)
	if err := c.Service.CreateEvent(r.Context(), caller, event); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Newest first. Supports page and page_size query parameters.
// @Tags events
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Items:      events,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its form fields, merchandise and live stock.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Organizer-only. Name, description, dates and deadline may change at any time.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEventDetails(r.Context(), eventID, caller, domain.EventDetailsUpdate{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Deadline:    req.Deadline,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEventStructure godoc
// @Summary Replace the event structure
// @Description Organizer-only. Replaces kind, fee, capacity, eligibility, form and merchandise. Refused once the event has registrations.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body EventStructureRequest true "New structure"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event locked)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/structure [put]
func (c *EventController) UpdateEventStructure(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req EventStructureRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	structure := &domain.Event{}
	req.apply(structure)
	event, err := c.Service.UpdateEventStructure(r.Context(), eventID, caller, structure)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
