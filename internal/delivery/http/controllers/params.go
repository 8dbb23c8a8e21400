package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/delivery/http/middleware"
	"campusfest/internal/domain"
)

// pathID reads a UUID path parameter. On a missing or malformed value it writes a 400 and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if _, err := uuid.Parse(raw); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return raw, true
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return p, true
}
