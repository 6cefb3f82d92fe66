package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/domain/user"
)

type registerRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	HasAcceptedTerms bool   `json:"hasAcceptedTerms" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterRequest{
		Email:            req.Email,
		Password:         req.Password,
		HasAcceptedTerms: req.HasAcceptedTerms,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			h.writeError(w, r, http.StatusConflict, "email already registered")
		default:
			h.writeError(w, r, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	h.issueTokens(w, r, u, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issueTokens(w, r, u, http.StatusOK)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, err := h.signer.Verify(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		h.writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), claims.UserID)
	if err != nil || !u.Active {
		h.writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.issueTokens(w, r, u, http.StatusOK)
}

func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	pair, err := h.signer.Issue(u.ID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	h.writeJSON(w, r, status, tokenResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		User:         toUserResponse(u),
	})
}
