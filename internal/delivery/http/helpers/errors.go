package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"campusfest/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins, so specific sentinels precede generic ones.
var errorMappings = []errorMapping{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrNotEligible, http.StatusForbidden, ErrCodeForbidden},

	{domain.ErrRegistrationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},

	{domain.ErrDuplicateRegistration, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict},
	{domain.ErrRegistrationClosed, http.StatusConflict, ErrCodeConflict},
	{domain.ErrEventFull, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInsufficientStock, http.StatusConflict, ErrCodeConflict},
	{domain.ErrEventLocked, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyAttended, http.StatusConflict, ErrCodeConflict},
	{domain.ErrTicketRevoked, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyInTeam, http.StatusConflict, ErrCodeConflict},
	{domain.ErrTeamFull, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeConflict},

	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidFormResponse, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrItemNotFound, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrPerUserLimitExceeded, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrVariantRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidVariantOption, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrMerchandiseSelectionRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidInviteCode, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrNotInTeam, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrNotTeamEvent, http.StatusBadRequest, ErrCodeBadRequest},
}

// StatusFor returns the HTTP status and error code for a service error.
// Unknown errors map to 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteServiceError writes err using StatusFor. Domain errors carry their message to the
// client; anything unexpected is logged and reported as an internal error.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal server error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
