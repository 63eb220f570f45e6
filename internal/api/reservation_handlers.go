package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
	"autorenta/internal/service"
	"autorenta/internal/utils"
)

type ReservationHandler struct {
	Service *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Service: svc}
}

// CheckAvailability answers whether a car could be booked for a range right
// now. Rejections that describe the car's calendar come back as
// available=false; malformed input and unknown cars keep their error codes.
func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, errors.Wrap(errors.KindInvalidRange, "invalid start date", err))
		return
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, errors.Wrap(errors.KindInvalidRange, "invalid end date", err))
		return
	}

	resp := entities.AvailabilityResponse{
		CarID:     req.CarID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Available: true,
	}
	if err := h.Service.CheckAvailability(r.Context(), req.CarID, start, end); err != nil {
		switch errors.KindOf(err) {
		case errors.KindItemUnavailable, errors.KindDateConflict:
			resp.Available = false
			resp.Reason = errors.KindOf(err).String()
		default:
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req entities.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := h.Service.RequestBooking(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewReservationResponse(res))
}

func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	res, err := h.Service.GetReservation(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func (h *ReservationHandler) ListCustomerReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reservations, err := h.Service.ListCustomerReservations(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(reservations))
}

// UpdateStatus drives confirmed/completed transitions for agencies and
// admins; status "cancelled" is the admin approval path of the
// cancellation workflow.
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req entities.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := h.Service.SetReservationStatus(r.Context(), actor, mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

// RequestCancellation files the customer's two-phase cancellation request.
func (h *ReservationHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	res, err := h.Service.RequestCancellation(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Cancellation request submitted and awaiting admin approval",
		"reservation": entities.NewReservationResponse(res),
	})
}

func toResponses(reservations []db.Reservation) []*entities.ReservationResponse {
	out := make([]*entities.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, entities.NewReservationResponse(&reservations[i]))
	}
	return out
}
