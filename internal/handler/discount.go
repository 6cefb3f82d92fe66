package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/discount"
)

type discountRequest struct {
	Code        string   `json:"code" validate:"required,alphanum,uppercase"`
	Description string   `json:"description"`
	Percent     string   `json:"percent" validate:"required"`
	StartDate   string   `json:"startDate" validate:"required"`
	EndDate     string   `json:"endDate" validate:"required"`
	MinNights   int      `json:"minNights" validate:"min=0"`
	RoomIDs     []string `json:"roomIds"`
}

type discountResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Percent     string    `json:"percent"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	MinNights   int       `json:"minNights"`
	RoomIDs     []string  `json:"roomIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDiscountResponse(d *discount.Discount) discountResponse {
	return discountResponse{
		ID:          d.ID,
		Code:        d.Code,
		Description: d.Description,
		Percent:     d.Percent.StringFixed(2),
		StartDate:   d.StartDate.Format("2006-01-02"),
		EndDate:     d.EndDate.Format("2006-01-02"),
		MinNights:   d.MinNights,
		RoomIDs:     d.RoomIDs,
		CreatedAt:   d.CreatedAt,
	}
}

func discountFromRequest(id string, req *discountRequest) (*discount.Discount, error) {
	percent, err := decimal.NewFromString(req.Percent)
	if err != nil || percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("percent must be a decimal between 0 and 100")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, errors.New("startDate must be formatted as 2006-01-02")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, errors.New("endDate must be formatted as 2006-01-02")
	}
	if end.Before(start) {
		return nil, discount.ErrInvalidDateRange
	}

	return &discount.Discount{
		ID:          id,
		Code:        req.Code,
		Description: req.Description,
		Percent:     percent,
		StartDate:   start,
		EndDate:     end,
		MinNights:   req.MinNights,
		RoomIDs:     req.RoomIDs,
	}, nil
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := discountFromRequest(uuid.New().String(), &req)
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	d.CreatedAt = time.Now().UTC()

	if err := h.discounts.Create(r.Context(), d); err != nil {
		if errors.Is(err, discount.ErrDuplicateCode) {
			h.writeError(w, r, http.StatusConflict, "discount code already in use")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "creating discount failed")
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toDiscountResponse(d))
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	all, err := h.discounts.List(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "listing discounts failed")
		return
	}
	out := make([]discountResponse, len(all))
	for i := range all {
		out[i] = toDiscountResponse(&all[i])
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, discount.ErrInvalidCode) {
			h.writeError(w, r, http.StatusNotFound, "discount not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting discount failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toDiscountResponse(d))
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := discountFromRequest(r.PathValue("id"), &req)
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.discounts.Update(r.Context(), d); err != nil {
		switch {
		case errors.Is(err, discount.ErrInvalidCode):
			h.writeError(w, r, http.StatusNotFound, "discount not found")
		case errors.Is(err, discount.ErrDuplicateCode):
			h.writeError(w, r, http.StatusConflict, "discount code already in use")
		default:
			h.writeError(w, r, http.StatusInternalServerError, "updating discount failed")
		}
		return
	}
	h.writeJSON(w, r, http.StatusOK, toDiscountResponse(d))
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, discount.ErrInvalidCode) {
			h.writeError(w, r, http.StatusNotFound, "discount not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "deleting discount failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
