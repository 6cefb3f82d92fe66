package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/domain/user"
)

type userResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty"`
	Telephone        string    `json:"telephone,omitempty"`
	Status           string    `json:"status"`
	Type             string    `json:"type"`
	HasAcceptedTerms bool      `json:"hasAcceptedTerms"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Telephone:        u.Telephone,
		Status:           string(u.Status),
		Type:             string(u.Type),
		HasAcceptedTerms: u.HasAcceptedTerms,
		Active:           u.Active,
		CreatedAt:        u.CreatedAt,
	}
}

type completeProfileRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Telephone string `json:"telephone" validate:"required,e164"`
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toUserResponse(u))
}

func (h *Handler) completeProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req completeProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.users.CompleteProfile(r.Context(), u.ID, user.CompleteProfileRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Telephone: req.Telephone,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrProfileAlreadyComplete):
			h.writeError(w, r, http.StatusConflict, "profile already complete")
		case errors.Is(err, user.ErrTelephoneTaken):
			h.writeError(w, r, http.StatusConflict, "telephone already registered")
		default:
			h.writeError(w, r, http.StatusInternalServerError, "profile update failed")
		}
		return
	}
	h.writeJSON(w, r, http.StatusOK, toUserResponse(updated))
}

func (h *Handler) deactivateSelf(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.users.Deactivate(r.Context(), u.ID); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "deactivation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	all, err := h.userRepo.List(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "listing users failed")
		return
	}
	out := make([]userResponse, len(all))
	for i := range all {
		out[i] = toUserResponse(&all[i])
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userRepo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting user failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toUserResponse(u))
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "deactivation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
