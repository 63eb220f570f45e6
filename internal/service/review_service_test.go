package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
)

func newReviewService(store *memStore) *ReviewService {
	return NewReviewService(store, store)
}

func TestCreateReview(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	seedReservation(store, "r1", customer.ID, db.StatusCompleted,
		nextYear(time.May, 1), nextYear(time.May, 3))
	svc := newReviewService(store)

	review, err := svc.CreateReview(context.Background(), customer, entities.ReviewRequest{
		CarID: "car-1", Rating: 4, Comment: "Clean car, smooth pickup",
	})
	require.NoError(t, err)
	assert.Equal(t, customer.ID, review.CustomerID)
	assert.Equal(t, "car-1", review.CarID)
	assert.Equal(t, 4, review.Rating)
	assert.NotEmpty(t, review.ID)

	reviews, err := svc.ListCarReviews(context.Background(), "car-1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, review.ID, reviews[0].ID)
}

func TestCreateReviewConfirmedReservationIsEligible(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	seedReservation(store, "r1", customer.ID, db.StatusConfirmed,
		nextYear(time.May, 1), nextYear(time.May, 3))
	svc := newReviewService(store)

	_, err := svc.CreateReview(context.Background(), customer, entities.ReviewRequest{
		CarID: "car-1", Rating: 5,
	})
	require.NoError(t, err)
}

func TestCreateReviewRejections(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	seedReservation(store, "pending", customer.ID, db.StatusPending,
		nextYear(time.May, 1), nextYear(time.May, 3))
	seedReservation(store, "other", otherCustomer.ID, db.StatusCompleted,
		nextYear(time.June, 1), nextYear(time.June, 3))
	svc := newReviewService(store)

	tests := []struct {
		name  string
		actor auth.Actor
		req   entities.ReviewRequest
		kind  errors.Kind
	}{
		{"agency cannot review", agency, entities.ReviewRequest{CarID: "car-1", Rating: 4}, errors.KindUnauthorized},
		{"rating too low", customer, entities.ReviewRequest{CarID: "car-1", Rating: 0}, errors.KindInvalidRange},
		{"rating too high", customer, entities.ReviewRequest{CarID: "car-1", Rating: 6}, errors.KindInvalidRange},
		{"unknown car", customer, entities.ReviewRequest{CarID: "missing", Rating: 4}, errors.KindNotFound},
		{"pending reservation not eligible", customer, entities.ReviewRequest{CarID: "car-1", Rating: 4}, errors.KindUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReview(context.Background(), tt.actor, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}
