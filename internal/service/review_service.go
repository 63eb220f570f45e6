package service

import (
	"context"

	"github.com/google/uuid"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
)

// ReviewStore is the review surface, implemented by
// repository.ReviewRepository.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *db.Review) error
	ListByCar(ctx context.Context, carID string) ([]db.Review, error)
	HasEligibleReservation(ctx context.Context, customerID, carID string) (bool, error)
}

type ReviewService struct {
	Repo ReviewStore
	Cars CarStore
}

func NewReviewService(repo ReviewStore, cars CarStore) *ReviewService {
	return &ReviewService{Repo: repo, Cars: cars}
}

// CreateReview records a customer's rating of a car. Only customers who hold
// a confirmed or completed reservation for the car may review it.
func (s *ReviewService) CreateReview(ctx context.Context, actor auth.Actor, req entities.ReviewRequest) (*db.Review, error) {
	if actor.Role != db.RoleCustomer {
		return nil, errors.E(errors.KindUnauthorized, "only customers can review cars")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, errors.E(errors.KindInvalidRange, "rating must be between 1 and 5")
	}
	if _, err := s.Cars.GetCar(ctx, req.CarID); err != nil {
		return nil, err
	}

	eligible, err := s.Repo.HasEligibleReservation(ctx, actor.ID, req.CarID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, errors.E(errors.KindUnauthorized, "no eligible reservation found for this car")
	}

	review := &db.Review{
		ID:         uuid.NewString(),
		CarID:      req.CarID,
		CustomerID: actor.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.Repo.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListCarReviews is public.
func (s *ReviewService) ListCarReviews(ctx context.Context, carID string) ([]db.Review, error) {
	if _, err := s.Cars.GetCar(ctx, carID); err != nil {
		return nil, err
	}
	return s.Repo.ListByCar(ctx, carID)
}
