package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/domain/discount"
	"github.com/gmapartments/booking-api/internal/domain/reservation"
)

type guestPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type createReservationRequest struct {
	RoomID         string       `json:"roomId" validate:"required"`
	CheckIn        string       `json:"checkIn" validate:"required"`
	CheckOut       string       `json:"checkOut" validate:"required"`
	NumberOfPeople int          `json:"numberOfPeople" validate:"required,min=1"`
	Guest          guestPayload `json:"guest"`
	CouponCode     string       `json:"couponCode"`
}

type reservationResponse struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	RoomID          string       `json:"roomId"`
	CheckIn         string       `json:"checkIn"`
	CheckOut        string       `json:"checkOut"`
	NumberOfPeople  int          `json:"numberOfPeople"`
	TotalCost       string       `json:"totalCost"`
	Status          string       `json:"status"`
	Guest           guestPayload `json:"guest"`
	CouponUsed      string       `json:"couponUsed,omitempty"`
	PaymentIntentID string       `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func toReservationResponse(rv *reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:             rv.ID,
		UserID:         rv.UserID,
		RoomID:         rv.RoomID,
		CheckIn:        rv.CheckIn.Format("2006-01-02"),
		CheckOut:       rv.CheckOut.Format("2006-01-02"),
		NumberOfPeople: rv.NumberOfPeople,
		TotalCost:      rv.TotalCost.StringFixed(2),
		Status:         string(rv.Status),
		Guest: guestPayload{
			FirstName: rv.Guest.FirstName,
			LastName:  rv.Guest.LastName,
			Phone:     rv.Guest.Phone,
			Email:     rv.Guest.Email,
		},
		CouponUsed:      rv.CouponUsed,
		PaymentIntentID: rv.PaymentIntentID,
		CreatedAt:       rv.CreatedAt,
	}
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req createReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "checkIn must be formatted as 2006-01-02")
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "checkOut must be formatted as 2006-01-02")
		return
	}

	rv, err := h.reservations.Create(r.Context(), reservation.CreateRequest{
		UserID:         u.ID,
		RoomID:         req.RoomID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		NumberOfPeople: req.NumberOfPeople,
		Guest: reservation.Guest{
			FirstName: req.Guest.FirstName,
			LastName:  req.Guest.LastName,
			Phone:     req.Guest.Phone,
			Email:     req.Guest.Email,
		},
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeReservationError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toReservationResponse(rv))
}

func (h *Handler) writeReservationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reservation.ErrInvalidDates),
		errors.Is(err, reservation.ErrPastCheckIn):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, reservation.ErrRoomUnavailable),
		errors.Is(err, reservation.ErrRoomOccupied),
		errors.Is(err, reservation.ErrTooManyPeople):
		h.writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, discount.ErrInvalidCode),
		errors.Is(err, discount.ErrOutsideValidity),
		errors.Is(err, discount.ErrNotEnoughNights),
		errors.Is(err, discount.ErrRoomNotEligible):
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		h.writeError(w, r, http.StatusInternalServerError, "creating reservation failed")
	}
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	all, err := h.reservations.List(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "listing reservations failed")
		return
	}

	// Customers only see their own bookings.
	out := make([]reservationResponse, 0, len(all))
	for i := range all {
		if !u.IsAdmin() && all[i].UserID != u.ID {
			continue
		}
		out = append(out, toReservationResponse(&all[i]))
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	rv, err := h.reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "reservation not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting reservation failed")
		return
	}
	if !u.IsAdmin() && rv.UserID != u.ID {
		h.writeError(w, r, http.StatusNotFound, "reservation not found")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toReservationResponse(rv))
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	rv, err := h.reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "reservation not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting reservation failed")
		return
	}
	if !u.IsAdmin() && rv.UserID != u.ID {
		h.writeError(w, r, http.StatusNotFound, "reservation not found")
		return
	}

	canceled, err := h.reservations.Cancel(r.Context(), rv.ID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "canceling reservation failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toReservationResponse(canceled))
}
