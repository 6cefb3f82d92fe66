// Package handler exposes the REST API over net/http. Each file maps one
// resource; this file holds the shared plumbing.
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/domain/discount"
	"github.com/gmapartments/booking-api/internal/domain/reservation"
	"github.com/gmapartments/booking-api/internal/domain/structure"
	"github.com/gmapartments/booking-api/internal/domain/user"
	"github.com/gmapartments/booking-api/internal/tasks"
)

// maxBodyBytes caps request bodies to keep JSON decoding bounded.
const maxBodyBytes = 1 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WebhookSecret signs payment webhook payloads.
	WebhookSecret string
	// MediaBaseURL is prepended to relative image paths in responses. When
	// empty, paths are returned as stored.
	MediaBaseURL string
}

// Handler wires the REST routes to the domain services.
type Handler struct {
	cfg Config

	users        *user.Service
	userRepo     user.Repository
	structures   structure.Repository
	rooms        structure.RoomRepository
	reservations *reservation.Service
	discounts    discount.Repository
	signer       *auth.Signer
	authmw       *auth.Middleware
	broker       tasks.Enqueuer

	validate *validator.Validate
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	users *user.Service,
	userRepo user.Repository,
	structures structure.Repository,
	rooms structure.RoomRepository,
	reservations *reservation.Service,
	discounts discount.Repository,
	signer *auth.Signer,
	authmw *auth.Middleware,
	broker tasks.Enqueuer,
) *Handler {
	return &Handler{
		cfg:          cfg,
		users:        users,
		userRepo:     userRepo,
		structures:   structures,
		rooms:        rooms,
		reservations: reservations,
		discounts:    discounts,
		signer:       signer,
		authmw:       authmw,
		broker:       broker,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers every API route on the mux. Auth requirements are applied
// per route group.
func (h *Handler) Routes(mux *http.ServeMux) {
	authed := h.authmw.RequireAuth()
	complete := h.authmw.RequireComplete()
	admin := h.authmw.RequireAdmin()

	wrap := func(fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		var hh http.Handler = fn
		for i := len(mws) - 1; i >= 0; i-- {
			hh = mws[i](hh)
		}
		return hh
	}

	// Auth.
	mux.HandleFunc("POST /api/v1/auth/register", h.register)
	mux.HandleFunc("POST /api/v1/auth/login", h.login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.refresh)

	// Users.
	mux.Handle("GET /api/v1/users/me", wrap(h.currentUser, authed))
	mux.Handle("POST /api/v1/users/me/profile", wrap(h.completeProfile, authed))
	mux.Handle("DELETE /api/v1/users/me", wrap(h.deactivateSelf, authed))
	mux.Handle("GET /api/v1/users", wrap(h.listUsers, authed, admin))
	mux.Handle("GET /api/v1/users/{id}", wrap(h.getUser, authed, admin))
	mux.Handle("DELETE /api/v1/users/{id}", wrap(h.deactivateUser, authed, admin))

	// Structures and rooms.
	mux.HandleFunc("GET /api/v1/structures", h.listStructures)
	mux.HandleFunc("GET /api/v1/structures/{id}", h.getStructure)
	mux.Handle("POST /api/v1/structures", wrap(h.createStructure, authed, admin))
	mux.Handle("PUT /api/v1/structures/{id}", wrap(h.updateStructure, authed, admin))
	mux.Handle("DELETE /api/v1/structures/{id}", wrap(h.deleteStructure, authed, admin))

	mux.HandleFunc("GET /api/v1/rooms", h.listRooms)
	mux.HandleFunc("GET /api/v1/rooms/{id}", h.getRoom)
	mux.HandleFunc("GET /api/v1/rooms/{id}/availability", h.roomAvailability)
	mux.Handle("POST /api/v1/rooms", wrap(h.createRoom, authed, admin))
	mux.Handle("PUT /api/v1/rooms/{id}", wrap(h.updateRoom, authed, admin))
	mux.Handle("DELETE /api/v1/rooms/{id}", wrap(h.deleteRoom, authed, admin))

	// Reservations.
	mux.Handle("POST /api/v1/reservations", wrap(h.createReservation, authed, complete))
	mux.Handle("GET /api/v1/reservations", wrap(h.listReservations, authed))
	mux.Handle("GET /api/v1/reservations/{id}", wrap(h.getReservation, authed))
	mux.Handle("POST /api/v1/reservations/{id}/cancel", wrap(h.cancelReservation, authed))

	// Discounts.
	mux.Handle("POST /api/v1/discounts", wrap(h.createDiscount, authed, admin))
	mux.Handle("GET /api/v1/discounts", wrap(h.listDiscounts, authed, admin))
	mux.Handle("GET /api/v1/discounts/{id}", wrap(h.getDiscount, authed, admin))
	mux.Handle("PUT /api/v1/discounts/{id}", wrap(h.updateDiscount, authed, admin))
	mux.Handle("DELETE /api/v1/discounts/{id}", wrap(h.deleteDiscount, authed, admin))

	// Payments.
	mux.HandleFunc("POST /api/v1/payments/webhook", h.paymentWebhook)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// decode reads and validates a JSON request body into dst. On failure it has
// already written the error response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	return "invalid field " + fe.Field() + ": failed " + fe.Tag() + " validation"
}

// parseDate parses a 2006-01-02 query or body value into a UTC civil date.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func todayUTC() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
