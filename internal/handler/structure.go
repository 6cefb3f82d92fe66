package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/structure"
)

type imagePayload struct {
	Path string `json:"path" validate:"required"`
	Alt  string `json:"alt"`
}

type structureRequest struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Address     string         `json:"address"`
	CIS         string         `json:"cis" validate:"required"`
	Images      []imagePayload `json:"images" validate:"dive"`
}

type structureResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Address     string         `json:"address,omitempty"`
	CIS         string         `json:"cis"`
	Images      []imagePayload `json:"images,omitempty"`
}

func (h *Handler) toStructureResponse(s *structure.Structure) structureResponse {
	return structureResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Address:     s.Address,
		CIS:         s.CIS,
		Images:      h.toImagePayloads(s.Images),
	}
}

// toImagePayloads resolves relative image paths against the media base URL.
func (h *Handler) toImagePayloads(images []structure.Image) []imagePayload {
	out := make([]imagePayload, len(images))
	for i, img := range images {
		path := img.Path
		if h.cfg.MediaBaseURL != "" && !strings.HasPrefix(path, "http") {
			path = strings.TrimSuffix(h.cfg.MediaBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
		}
		out[i] = imagePayload{Path: path, Alt: img.Alt}
	}
	return out
}

func toImages(payloads []imagePayload) []structure.Image {
	out := make([]structure.Image, len(payloads))
	for i, p := range payloads {
		out[i] = structure.Image{Path: p.Path, Alt: p.Alt}
	}
	return out
}

func (h *Handler) listStructures(w http.ResponseWriter, r *http.Request) {
	all, err := h.structures.List(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "listing structures failed")
		return
	}
	out := make([]structureResponse, len(all))
	for i := range all {
		out[i] = h.toStructureResponse(&all[i])
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getStructure(w http.ResponseWriter, r *http.Request) {
	s, err := h.structures.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "structure not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting structure failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.toStructureResponse(s))
}

func (h *Handler) createStructure(w http.ResponseWriter, r *http.Request) {
	var req structureRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := &structure.Structure{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		CIS:         req.CIS,
		Images:      toImages(req.Images),
	}
	if err := h.structures.Create(r.Context(), s); err != nil {
		if errors.Is(err, structure.ErrDuplicateCIS) {
			h.writeError(w, r, http.StatusConflict, "CIS code already registered")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "creating structure failed")
		return
	}
	h.writeJSON(w, r, http.StatusCreated, h.toStructureResponse(s))
}

func (h *Handler) updateStructure(w http.ResponseWriter, r *http.Request) {
	var req structureRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := &structure.Structure{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		CIS:         req.CIS,
		Images:      toImages(req.Images),
	}
	if err := h.structures.Update(r.Context(), s); err != nil {
		switch {
		case errors.Is(err, structure.ErrNotFound):
			h.writeError(w, r, http.StatusNotFound, "structure not found")
		case errors.Is(err, structure.ErrDuplicateCIS):
			h.writeError(w, r, http.StatusConflict, "CIS code already registered")
		default:
			h.writeError(w, r, http.StatusInternalServerError, "updating structure failed")
		}
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.toStructureResponse(s))
}

func (h *Handler) deleteStructure(w http.ResponseWriter, r *http.Request) {
	if err := h.structures.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "structure not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "deleting structure failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type roomRequest struct {
	StructureID       string         `json:"structureId" validate:"required"`
	Name              string         `json:"name" validate:"required"`
	Status            string         `json:"status" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE"`
	Services          string         `json:"services"`
	CostPerNight      string         `json:"costPerNight" validate:"required"`
	MaxPeople         int            `json:"maxPeople" validate:"required,min=1"`
	CalendarID        string         `json:"calendarId"`
	BookingCalendarID string         `json:"bookingCalendarId"`
	Images            []imagePayload `json:"images" validate:"dive"`
}

type roomResponse struct {
	ID                string         `json:"id"`
	StructureID       string         `json:"structureId"`
	Name              string         `json:"name"`
	Status            string         `json:"status"`
	Services          string         `json:"services,omitempty"`
	CostPerNight      string         `json:"costPerNight"`
	MaxPeople         int            `json:"maxPeople"`
	CalendarID        string         `json:"calendarId,omitempty"`
	BookingCalendarID string         `json:"bookingCalendarId,omitempty"`
	Images            []imagePayload `json:"images,omitempty"`
}

func (h *Handler) toRoomResponse(rm *structure.Room) roomResponse {
	return roomResponse{
		ID:                rm.ID,
		StructureID:       rm.StructureID,
		Name:              rm.Name,
		Status:            string(rm.Status),
		Services:          rm.Services,
		CostPerNight:      rm.CostPerNight.StringFixed(2),
		MaxPeople:         rm.MaxPeople,
		CalendarID:        rm.CalendarID,
		BookingCalendarID: rm.BookingCalendarID,
		Images:            h.toImagePayloads(rm.Images),
	}
}

func (h *Handler) roomFromRequest(id string, req *roomRequest) (*structure.Room, error) {
	cost, err := decimal.NewFromString(req.CostPerNight)
	if err != nil || cost.IsNegative() {
		return nil, errors.New("costPerNight must be a non-negative decimal")
	}

	status := structure.RoomStatus(req.Status)
	if req.Status == "" {
		status = structure.RoomAvailable
	}
	return &structure.Room{
		ID:                id,
		StructureID:       req.StructureID,
		Name:              req.Name,
		Status:            status,
		Services:          req.Services,
		CostPerNight:      cost,
		MaxPeople:         req.MaxPeople,
		CalendarID:        req.CalendarID,
		BookingCalendarID: req.BookingCalendarID,
		Images:            toImages(req.Images),
	}, nil
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	var (
		rooms []structure.Room
		err   error
	)
	if structureID := r.URL.Query().Get("structureId"); structureID != "" {
		rooms, err = h.rooms.ListByStructure(r.Context(), structureID)
	} else {
		rooms, err = h.rooms.List(r.Context())
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "listing rooms failed")
		return
	}
	out := make([]roomResponse, len(rooms))
	for i := range rooms {
		out[i] = h.toRoomResponse(&rooms[i])
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, structure.ErrRoomNotFound) {
			h.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting room failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.toRoomResponse(rm))
}

type availabilityResponse struct {
	RoomID    string   `json:"roomId"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	BusyDates []string `json:"busyDates"`
}

// roomAvailability returns the busy dates of the room within [from, to],
// defaulting to the next 90 days.
func (h *Handler) roomAvailability(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, err := h.rooms.GetByID(r.Context(), roomID); err != nil {
		if errors.Is(err, structure.ErrRoomNotFound) {
			h.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "getting room failed")
		return
	}

	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if q.Get("from") == "" {
		from = todayUTC()
	} else if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "from must be formatted as 2006-01-02")
		return
	}
	to, err := parseDate(q.Get("to"))
	if q.Get("to") == "" {
		to = from.AddDate(0, 0, 90)
	} else if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "to must be formatted as 2006-01-02")
		return
	}
	if to.Before(from) {
		h.writeError(w, r, http.StatusBadRequest, "to must not precede from")
		return
	}

	busy, err := h.reservations.BusyDates(r.Context(), roomID, from, to)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "computing availability failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, availabilityResponse{
		RoomID:    roomID,
		From:      from.Format("2006-01-02"),
		To:        to.Format("2006-01-02"),
		BusyDates: busy,
	})
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !h.decode(w, r, &req) {
		return
	}
	rm, err := h.roomFromRequest(uuid.New().String(), &req)
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if _, err := h.structures.GetByID(r.Context(), rm.StructureID); err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			h.writeError(w, r, http.StatusUnprocessableEntity, "unknown structure")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "creating room failed")
		return
	}

	if err := h.rooms.Create(r.Context(), rm); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "creating room failed")
		return
	}
	h.writeJSON(w, r, http.StatusCreated, h.toRoomResponse(rm))
}

func (h *Handler) updateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !h.decode(w, r, &req) {
		return
	}
	rm, err := h.roomFromRequest(r.PathValue("id"), &req)
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.rooms.Update(r.Context(), rm); err != nil {
		if errors.Is(err, structure.ErrRoomNotFound) {
			h.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "updating room failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.toRoomResponse(rm))
}

func (h *Handler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, structure.ErrRoomNotFound) {
			h.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "deleting room failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
