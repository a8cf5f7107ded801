package handlers

import (
	"net/http"

	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/profiles"
	"filedrop/internal/pkg/errors"
)

type ProfileHandler struct {
	profiles *profiles.Service
}

func NewProfileHandler(svc *profiles.Service) *ProfileHandler {
	return &ProfileHandler{profiles: svc}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.ProfileFrom(r.Context()))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req struct {
		FullName string `json:"full_name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.UpdateFullName(r.Context(), identity.UserID, req.FullName)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Usage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	usage, err := h.profiles.Usage(r.Context(), identity.UserID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

func (h *ProfileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	profile, err := h.profiles.Reconcile(r.Context(), identity.UserID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
