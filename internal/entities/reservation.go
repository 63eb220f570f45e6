package entities

import (
	"time"

	"autorenta/internal/db"
	"autorenta/internal/utils"
)

type BookingRequest struct {
	CarID      string `json:"car_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type CancellationResponse struct {
	Status         string     `json:"status"`
	RequestedAt    *time.Time `json:"requested_at,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	RefundEligible *bool      `json:"refund_eligible,omitempty"`
	FraudSuspected bool       `json:"fraud_suspected"`
}

type ReservationResponse struct {
	ID           string                `json:"id"`
	Code         string                `json:"code"`
	CustomerID   string                `json:"customer_id"`
	CarID        string                `json:"car_id"`
	StartDate    string                `json:"start_date"`
	EndDate      string                `json:"end_date"`
	TotalPrice   int                   `json:"total_price"`
	Status       string                `json:"status"`
	Cancellation *CancellationResponse `json:"cancellation,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// NewReservationResponse flattens nullable cancellation columns into the
// wire shape. A sub-record still at "none" is omitted entirely.
func NewReservationResponse(res *db.Reservation) *ReservationResponse {
	out := &ReservationResponse{
		ID:         res.ID,
		Code:       res.Code,
		CustomerID: res.CustomerID,
		CarID:      res.CarID,
		StartDate:  res.StartDate.Format(utils.DateLayout),
		EndDate:    res.EndDate.Format(utils.DateLayout),
		TotalPrice: res.TotalPrice,
		Status:     res.Status,
		CreatedAt:  res.CreatedAt,
		UpdatedAt:  res.UpdatedAt,
	}

	c := res.Cancellation
	if c.Status != "" && c.Status != db.CancellationNone {
		cr := &CancellationResponse{
			Status:         c.Status,
			FraudSuspected: c.FraudSuspected,
		}
		if c.RequestedAt.Valid {
			t := c.RequestedAt.Time
			cr.RequestedAt = &t
		}
		if c.ApprovedAt.Valid {
			t := c.ApprovedAt.Time
			cr.ApprovedAt = &t
		}
		if c.ApprovedBy.Valid {
			cr.ApprovedBy = c.ApprovedBy.String
		}
		if c.RefundEligible.Valid {
			b := c.RefundEligible.Bool
			cr.RefundEligible = &b
		}
		out.Cancellation = cr
	}
	return out
}
