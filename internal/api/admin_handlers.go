package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"autorenta/internal/entities"
	"autorenta/internal/service"
)

type AdminHandler struct {
	Admin        *service.AdminService
	Reservations *service.ReservationService
}

func NewAdminHandler(admin *service.AdminService, reservations *service.ReservationService) *AdminHandler {
	return &AdminHandler{Admin: admin, Reservations: reservations}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	users, err := h.Admin.ListUsers(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, entities.UserResponse{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsValidated: u.IsValidated,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) ValidateAgency(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req struct {
		IsValidated bool `json:"is_validated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.Admin.ValidateAgency(r.Context(), actor, mux.Vars(r)["id"], req.IsValidated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.UserResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, IsValidated: user.IsValidated,
	})
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reservations, err := h.Reservations.ListReservations(r.Context(), actor,
		r.URL.Query().Get("date"), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(reservations))
}

// RejectCancellation closes a pending customer request without cancelling.
func (h *AdminHandler) RejectCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	res, err := h.Reservations.RejectCancellation(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}
