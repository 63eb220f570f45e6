package repository

import (
	"context"
	"database/sql"

	"autorenta/internal/db"
)

type ReviewRepository struct {
	DB *sql.DB
}

func NewReviewRepository(database *sql.DB) *ReviewRepository {
	return &ReviewRepository{DB: database}
}

func (r *ReviewRepository) CreateReview(ctx context.Context, review *db.Review) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO reviews (id, car_id, customer_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING created_at`,
		review.ID, review.CarID, review.CustomerID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		return storeErr("insert review", err)
	}
	return nil
}

func (r *ReviewRepository) ListByCar(ctx context.Context, carID string) ([]db.Review, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, car_id, customer_id, rating, comment, created_at
		 FROM reviews WHERE car_id = $1 ORDER BY created_at DESC`, carID)
	if err != nil {
		return nil, storeErr("query reviews", err)
	}
	defer rows.Close()

	var reviews []db.Review
	for rows.Next() {
		var rv db.Review
		err := rows.Scan(&rv.ID, &rv.CarID, &rv.CustomerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
		if err != nil {
			return nil, storeErr("scan review", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate reviews", err)
	}
	return reviews, nil
}

// HasEligibleReservation reports whether the customer holds a confirmed or
// completed reservation for the car, the precondition for reviewing it.
func (r *ReviewRepository) HasEligibleReservation(ctx context.Context, customerID, carID string) (bool, error) {
	var eligible bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE customer_id = $1 AND car_id = $2 AND status IN ($3, $4)
		)`,
		customerID, carID, db.StatusConfirmed, db.StatusCompleted,
	).Scan(&eligible)
	if err != nil {
		return false, storeErr("check review eligibility", err)
	}
	return eligible, nil
}
