// Package db holds the single authoritative model definitions for the
// rental engine. Every layer reads these types; no handler or repository
// carries its own schema variant.
package db

import (
	"database/sql"
	"time"
)

// Reservation lifecycle statuses. Completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Cancellation sub-record statuses. The status only advances
// none -> pending -> {approved, rejected} and never regresses.
const (
	CancellationNone     = "none"
	CancellationPending  = "pending"
	CancellationApproved = "approved"
	CancellationRejected = "rejected"
)

// Actor roles, supplied by the identity provider and trusted verbatim.
const (
	RoleCustomer = "customer"
	RoleAgency   = "agency"
	RoleAdmin    = "admin"
)

type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	IsValidated  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Car is the rentable unit. Availability is the agency/admin kill-switch,
// not date-level truth: whether a range is free is always derived from the
// reservation set. The engine flips the flag back on when a cancellation
// frees the car.
type Car struct {
	ID           string
	OwnerID      string
	Brand        string
	Model        string
	Year         int
	City         string
	PricePerDay  int
	Type         string
	Photos       []string
	Availability bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Cancellation is the audit trail of a reservation's cancellation request
// and approval. It is created lazily on the first cancellation-related
// action and persists even after the reservation is fully cancelled.
// RefundEligible is computed exactly once and frozen.
type Cancellation struct {
	Status         string
	RequestedAt    sql.NullTime
	ApprovedAt     sql.NullTime
	ApprovedBy     sql.NullString
	RefundEligible sql.NullBool
	FraudSuspected bool
}

// Reservation is a time-bounded rental of a car. StartDate and EndDate are
// inclusive calendar bounds. TotalPrice is derived at creation and never
// recalculated.
type Reservation struct {
	ID           string
	Code         string
	CustomerID   string
	CarID        string
	StartDate    time.Time
	EndDate      time.Time
	TotalPrice   int
	Status       string
	PaymentRef   sql.NullString
	Cancellation Cancellation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the reservation holds its date range, i.e. counts
// toward the non-overlap invariant.
func (r *Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Review is a customer's rating of a car they actually rented.
type Review struct {
	ID         string
	CarID      string
	CustomerID string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}
