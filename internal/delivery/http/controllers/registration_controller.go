package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/domain"
)

// RegisterRequest is the request body for POST /events/{eventID}/registrations.
type RegisterRequest struct {
	FormResponses domain.FormResponses        `json:"form_responses"`
	Merchandise   []domain.MerchandiseRequest `json:"merchandise"`
}

// Validate implements Validator.
func (req RegisterRequest) Validate() []string {
	var errs []string
	for i, m := range req.Merchandise {
		if m.ItemID == "" {
			errs = append(errs, fmt.Sprintf("merchandise[%d].item_id is required", i))
		}
	}
	return errs
}

// SetStatusRequest is the request body for PUT /registrations/{registrationID}/status.
type SetStatusRequest struct {
	Status domain.Status `json:"status"`
}

// Validate implements Validator.
func (s SetStatusRequest) Validate() []string {
	switch s.Status {
	case domain.StatusConfirmed, domain.StatusRejected, domain.StatusPending:
		return nil
	}
	return []string{`status must be "confirmed", "rejected" or "pending"`}
}

// PaymentProofRequest is the request body for PUT /registrations/{registrationID}/payment-proof.
type PaymentProofRequest struct {
	PaymentProofRef string `json:"payment_proof_ref"`
}

// Validate implements Validator.
func (p PaymentProofRequest) Validate() []string {
	if strings.TrimSpace(p.PaymentProofRef) == "" {
		return []string{"payment_proof_ref is required"}
	}
	return nil
}

// RegistrationSuccessResponse is the success response envelope carrying one registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ListRegistrationsResponse is the data payload for GET /events/{eventID}/registrations.
type ListRegistrationsResponse struct {
	Items      []*domain.Registration `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

type RegistrationController struct {
	Logger       *slog.Logger
	Reservations domain.ReservationService
	Approvals    domain.ApprovalService
	Service      domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, reservations domain.ReservationService, approvals domain.ApprovalService, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:       logger,
		Reservations: reservations,
		Approvals:    approvals,
		Service:      svc,
	}
}

// Register godoc
// @Summary Register for an event
// @Description Reserves a seat and any merchandise atomically. Free registrations are confirmed with a ticket; paid ones stay pending until approved.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RegisterRequest true "Form responses and merchandise"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (form, variant, limit)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not eligible)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate, full, stock, closed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := c.Reservations.Reserve(r.Context(), caller, domain.ReservationRequest{
		EventID:       eventID,
		FormResponses: req.FormResponses,
		Merchandise:   req.Merchandise,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// ListByEvent godoc
// @Summary List an event's registrations
// @Description Organizer-only. Oldest first, optionally filtered by status.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "pending, confirmed, rejected or cancelled"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	filter, err := helpers.ParseRegistrationFilter(r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	regs, total, err := c.Service.ListByEvent(r.Context(), eventID, caller, filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListRegistrationsResponse{
		Items:      regs,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// ListMine godoc
// @Summary List my registrations
// @Description Every registration of the caller, each with its event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is a list of registration and event pairs"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/registrations [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListMine(r.Context(), caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// Get godoc
// @Summary Get a registration
// @Description Visible to its participant and to the event's organizer.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "registrationID")
	if !ok {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.GetRegistration(r.Context(), id, caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// SetStatus godoc
// @Summary Approve, reject or re-open a registration
// @Description Organizer-only. Stock and the confirmed counter follow the transition; a ticket is issued on first confirmation.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param body body SetStatusRequest true "Target status"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (transition, full, stock)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/status [put]
func (c *RegistrationController) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "registrationID")
	if !ok {
		return
	}
	var req SetStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := c.Approvals.SetStatus(r.Context(), id, req.Status, caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdatePaymentProof godoc
// @Summary Attach a payment proof
// @Description Owner-only, while the registration is pending.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param body body PaymentProofRequest true "Proof reference"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/payment-proof [put]
func (c *RegistrationController) UpdatePaymentProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "registrationID")
	if !ok {
		return
	}
	var req PaymentProofRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.UpdatePaymentProof(r.Context(), id, caller, strings.TrimSpace(req.PaymentProofRef))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel my registration
// @Description Owner-only. Releases the seat and any held merchandise.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already cancelled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "registrationID")
	if !ok {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	reg, err := c.Approvals.Cancel(r.Context(), id, caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}
