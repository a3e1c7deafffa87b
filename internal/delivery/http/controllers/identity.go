package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"consultations/internal/delivery/http/helpers"
	"consultations/internal/delivery/http/middleware"
	"consultations/internal/domain"
)

// callerIdentity returns the authenticated caller or writes 401.
func callerIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Identity{}, false
	}
	return id, true
}

// pathID returns the named path value or writes 400. Ids are UUIDs; anything
// else is rejected before it reaches storage.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.PathValue(name)
	if v == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if err := uuid.Validate(v); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeValidationFailed, name+" must be a valid UUID")
		return "", false
	}
	return v, true
}
