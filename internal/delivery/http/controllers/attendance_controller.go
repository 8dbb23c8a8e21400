package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/domain"
)

// MarkAttendanceRequest is the request body for POST /attendance.
type MarkAttendanceRequest struct {
	TicketID string `json:"ticket_id"`
}

// Validate implements Validator.
func (m MarkAttendanceRequest) Validate() []string {
	if strings.TrimSpace(m.TicketID) == "" {
		return []string{"ticket_id is required"}
	}
	return nil
}

type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewAttendanceController(logger *slog.Logger, svc domain.RegistrationService) *AttendanceController {
	return &AttendanceController{Logger: logger, Service: svc}
}

// MarkAttendance godoc
// @Summary Scan a ticket at the venue
// @Description Organizer-only. Marks the ticket's registration as attended exactly once.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body MarkAttendanceRequest true "Scanned ticket"
// @Success 200 {object} helpers.APIResponse "data contains participant, event and registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown ticket)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already attended, revoked)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendance [post]
func (c *AttendanceController) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	record, err := c.Service.MarkAttendance(r.Context(), strings.TrimSpace(req.TicketID), caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, record)
}
