package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/domain"
)

// CreateTeamRequest is the request body for POST /events/{eventID}/teams.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (c CreateTeamRequest) Validate() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

// JoinTeamRequest is the request body for POST /teams/join.
type JoinTeamRequest struct {
	InviteCode string `json:"invite_code"`
}

// Validate implements Validator.
func (j JoinTeamRequest) Validate() []string {
	if strings.TrimSpace(j.InviteCode) == "" {
		return []string{"invite_code is required"}
	}
	return nil
}

// TeamMembershipSuccessResponse is the success envelope for team create and join.
type TeamMembershipSuccessResponse struct {
	Data  *domain.TeamMembership `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

type TeamController struct {
	Logger  *slog.Logger
	Service domain.TeamService
}

func NewTeamController(logger *slog.Logger, svc domain.TeamService) *TeamController {
	return &TeamController{Logger: logger, Service: svc}
}

// CreateTeam godoc
// @Summary Create a team
// @Description Registers the caller for a team event and makes them leader of a new team with an invite code.
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateTeamRequest true "Team name"
// @Success 201 {object} controllers.TeamMembershipSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not eligible)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already in team, full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/teams [post]
func (c *TeamController) CreateTeam(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateTeamRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	membership, err := c.Service.CreateTeam(r.Context(), caller, eventID, strings.TrimSpace(req.Name))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, membership)
}

// ListTeams godoc
// @Summary List an event's teams
// @Description Invite codes are only included for teams the caller belongs to.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is a list of teams"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/teams [get]
func (c *TeamController) ListTeams(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	teams, err := c.Service.ListTeams(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	// Invite codes are shown to members only.
	out := make([]*domain.Team, 0, len(teams))
	for _, t := range teams {
		if !t.HasMember(caller.UserID) {
			masked := *t
			masked.InviteCode = ""
			t = &masked
		}
		out = append(out, t)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}

// JoinTeam godoc
// @Summary Join a team by invite code
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinTeamRequest true "Invite code"
// @Success 200 {object} controllers.TeamMembershipSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (invalid code)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not eligible)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already in team, team full, event full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /teams/join [post]
func (c *TeamController) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var req JoinTeamRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	membership, err := c.Service.JoinTeam(r.Context(), caller, strings.TrimSpace(req.InviteCode))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, membership)
}

// LeaveTeam godoc
// @Summary Leave a team
// @Description The leader role passes to the longest-standing member; an empty team is deleted.
// @Tags teams
// @Security BearerAuth
// @Param teamID path string true "Team ID (UUID)"
// @Success 204
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not a member)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /teams/{teamID}/members/me [delete]
func (c *TeamController) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := c.Service.LeaveTeam(r.Context(), caller, teamID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
