package entities

import "time"

// Event types published to the reservations exchange.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is the message consumed by downstream tooling, in
// particular the manual fraud-review queue that acts on FraudSuspected.
type ReservationEvent struct {
	Type           string    `json:"type"`
	ReservationID  string    `json:"reservation_id"`
	Code           string    `json:"code"`
	CarID          string    `json:"car_id"`
	CustomerID     string    `json:"customer_id"`
	Status         string    `json:"status"`
	RefundEligible bool      `json:"refund_eligible"`
	FraudSuspected bool      `json:"fraud_suspected"`
	OccurredAt     time.Time `json:"occurred_at"`
}
