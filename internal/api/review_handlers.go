package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/service"
)

type ReviewHandler struct {
	Service *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Service: svc}
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req entities.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	review, err := h.Service.CreateReview(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (h *ReviewHandler) ListCarReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Service.ListCarReviews(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*entities.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func toReviewResponse(rv *db.Review) *entities.ReviewResponse {
	return &entities.ReviewResponse{
		ID:         rv.ID,
		CarID:      rv.CarID,
		CustomerID: rv.CustomerID,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
		CreatedAt:  rv.CreatedAt,
	}
}
