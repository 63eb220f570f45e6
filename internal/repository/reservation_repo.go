package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"autorenta/internal/db"
	"autorenta/internal/errors"
	"autorenta/internal/utils"
)

// RefundCancellationCap is the lifetime cap: once a customer has this many
// approved cancellations, further ones stop being refund eligible.
const RefundCancellationCap = 2

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database}
}

const reservationCols = `
	id, code, customer_id, car_id, start_date, end_date, total_price, status,
	payment_ref, cancellation_status, cancellation_requested_at,
	cancellation_approved_at, cancellation_approved_by, refund_eligible,
	fraud_suspected, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*db.Reservation, error) {
	var res db.Reservation
	err := row.Scan(
		&res.ID, &res.Code, &res.CustomerID, &res.CarID, &res.StartDate,
		&res.EndDate, &res.TotalPrice, &res.Status, &res.PaymentRef,
		&res.Cancellation.Status, &res.Cancellation.RequestedAt,
		&res.Cancellation.ApprovedAt, &res.Cancellation.ApprovedBy,
		&res.Cancellation.RefundEligible, &res.Cancellation.FraudSuspected,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// storeErr maps driver failures onto the engine's taxonomy. Serialization
// failures and deadlocks are retryable; everything else at this layer is a
// store problem, never swallowed.
func storeErr(msg string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return errors.Wrap(errors.KindConcurrencyConflict, msg, err)
		}
	}
	return errors.Wrap(errors.KindUnavailable, msg, err)
}

// CreateReservation commits an admitted booking. The whole read-check-write
// sequence runs in one transaction holding a row lock on the car, so two
// concurrent requests for the same car serialize and the loser sees the
// winner's row before deciding. The overlap re-check under the lock uses the
// same predicate as the pure admission path.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *db.Reservation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin reservation tx", err)
	}
	defer tx.Rollback()

	var available bool
	err = tx.QueryRowContext(ctx,
		`SELECT availability FROM cars WHERE id = $1 FOR UPDATE`, res.CarID,
	).Scan(&available)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.Ef(errors.KindNotFound, "car %s not found", res.CarID)
		}
		return storeErr("lock car row", err)
	}
	if !available {
		return errors.E(errors.KindItemUnavailable, "car is not available")
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT start_date, end_date FROM reservations
		 WHERE car_id = $1 AND status IN ($2, $3)`,
		res.CarID, db.StatusPending, db.StatusConfirmed,
	)
	if err != nil {
		return storeErr("query active reservations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return storeErr("scan active reservation", err)
		}
		if utils.Overlaps(res.StartDate, res.EndDate, start, end) {
			return errors.E(errors.KindDateConflict, "car already reserved for selected dates")
		}
	}
	if err := rows.Err(); err != nil {
		return storeErr("iterate active reservations", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO reservations
		 (id, code, customer_id, car_id, start_date, end_date, total_price, status, payment_ref, cancellation_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		res.ID, res.Code, res.CustomerID, res.CarID, res.StartDate, res.EndDate,
		res.TotalPrice, res.Status, res.PaymentRef, res.Cancellation.Status,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			// A colliding id or code loses the race; the caller retries with
			// fresh ones.
			return errors.Wrap(errors.KindConcurrencyConflict, "insert reservation", err)
		}
		return storeErr("insert reservation", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit reservation", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (*db.Reservation, error) {
	res, err := scanReservation(r.DB.QueryRowContext(ctx,
		`SELECT`+reservationCols+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Ef(errors.KindNotFound, "reservation %s not found", id)
		}
		return nil, storeErr("query reservation", err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByCustomer(ctx context.Context, customerID string) ([]db.Reservation, error) {
	return r.list(ctx,
		`SELECT`+reservationCols+` FROM reservations WHERE customer_id = $1 ORDER BY start_date DESC`,
		customerID)
}

// ListActiveForCar returns pending/confirmed reservations for a car,
// optionally excluding one reservation (the one being cancelled).
func (r *ReservationRepository) ListActiveForCar(ctx context.Context, carID, excludeID string) ([]db.Reservation, error) {
	return r.list(ctx,
		`SELECT`+reservationCols+` FROM reservations
		 WHERE car_id = $1 AND ($2 = '' OR id::text <> $2) AND status IN ($3, $4)`,
		carID, excludeID, db.StatusPending, db.StatusConfirmed)
}

// ListActiveForCars is the bulk form used by the date-filtered car search.
func (r *ReservationRepository) ListActiveForCars(ctx context.Context, carIDs []string) ([]db.Reservation, error) {
	if len(carIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx,
		`SELECT`+reservationCols+` FROM reservations
		 WHERE car_id = ANY($1) AND status IN ($2, $3)`,
		pq.Array(carIDs), db.StatusPending, db.StatusConfirmed)
}

// ListReservations is the admin listing with optional start-date and status
// filters.
func (r *ReservationRepository) ListReservations(ctx context.Context, date, status string) ([]db.Reservation, error) {
	query := `SELECT` + reservationCols + ` FROM reservations WHERE 1=1`
	args := []any{}
	if date != "" {
		args = append(args, date)
		query += fmt.Sprintf(" AND start_date = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_date DESC"
	return r.list(ctx, query, args...)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]db.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query reservations", err)
	}
	defer rows.Close()

	var out []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, storeErr("scan reservation", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate reservations", err)
	}
	return out, nil
}

// refundEligibleLocked computes the refund flag inside a transaction. The
// lock on the customer's user row serializes concurrent cancellations for
// the same customer, so the count cannot go stale between read and write.
func refundEligibleLocked(ctx context.Context, tx *sql.Tx, customerID, excludeID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, customerID).Scan(&id)
	if err != nil {
		return false, err
	}
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE customer_id = $1 AND id <> $2 AND cancellation_status = $3`,
		customerID, excludeID, db.CancellationApproved,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count < RefundCancellationCap, nil
}

// SubmitCancellationRequest opens the sub-record for a customer request.
// The WHERE clause is the linearization point: it only fires on an active
// reservation with no prior cancellation activity, so a concurrent duplicate
// loses the conditional update instead of clobbering the record. The refund
// flag is computed under the customer-row lock and frozen via COALESCE.
func (r *ReservationRepository) SubmitCancellationRequest(ctx context.Context, resID, customerID string, requestedAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin cancellation request tx", err)
	}
	defer tx.Rollback()

	refundEligible, err := refundEligibleLocked(ctx, tx, customerID, resID)
	if err != nil {
		return storeErr("compute refund eligibility", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET
			cancellation_status = $2,
			cancellation_requested_at = $3,
			refund_eligible = COALESCE(refund_eligible, $4),
			fraud_suspected = FALSE,
			updated_at = NOW()
		 WHERE id = $1 AND status IN ($5, $6) AND cancellation_status = $7`,
		resID, db.CancellationPending, requestedAt, refundEligible,
		db.StatusPending, db.StatusConfirmed, db.CancellationNone,
	)
	if err != nil {
		return storeErr("submit cancellation request", err)
	}
	if err := requireOneRow(result, "cancellation request lost a concurrent update"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit cancellation request", err)
	}
	return nil
}

type ApproveCancellationParams struct {
	ReservationID  string
	CarID          string
	CustomerID     string
	AdminID        string
	Now            time.Time
	FraudSuspected bool
	// FreeCar flips the car's availability flag back on because no other
	// active reservation explains it being off.
	FreeCar bool
}

// ApproveCancellation finalizes a cancellation atomically: the reservation
// moves to cancelled with an approved sub-record, and the car flag flips in
// the same transaction when the cancellation frees it. An existing request
// timestamp is preserved; the conditional WHERE guarantees at most one of
// two concurrent approvals succeeds, and the refund flag is computed under
// the customer-row lock so parallel approvals of different reservations
// cannot both slip under the cap.
func (r *ReservationRepository) ApproveCancellation(ctx context.Context, p ApproveCancellationParams) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin cancellation tx", err)
	}
	defer tx.Rollback()

	refundEligible, err := refundEligibleLocked(ctx, tx, p.CustomerID, p.ReservationID)
	if err != nil {
		return storeErr("compute refund eligibility", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET
			status = $2,
			cancellation_status = $3,
			cancellation_requested_at = COALESCE(cancellation_requested_at, $4),
			cancellation_approved_at = $4,
			cancellation_approved_by = $5,
			refund_eligible = COALESCE(refund_eligible, $6),
			fraud_suspected = $7,
			updated_at = NOW()
		 WHERE id = $1 AND status IN ($8, $9) AND cancellation_status IN ($10, $11)`,
		p.ReservationID, db.StatusCancelled, db.CancellationApproved, p.Now,
		p.AdminID, refundEligible, p.FraudSuspected,
		db.StatusPending, db.StatusConfirmed,
		db.CancellationNone, db.CancellationPending,
	)
	if err != nil {
		return storeErr("approve cancellation", err)
	}
	if err := requireOneRow(result, "cancellation approval lost a concurrent update"); err != nil {
		return err
	}

	if p.FreeCar {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cars SET availability = TRUE, updated_at = NOW()
			 WHERE id = $1 AND availability = FALSE`, p.CarID); err != nil {
			return storeErr("free car availability", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit cancellation", err)
	}
	return nil
}

// RejectCancellation closes a pending request without cancelling the
// reservation. The sub-record is terminal afterwards.
func (r *ReservationRepository) RejectCancellation(ctx context.Context, resID, adminID string, now time.Time) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET
			cancellation_status = $2,
			cancellation_approved_at = $3,
			cancellation_approved_by = $4,
			updated_at = NOW()
		 WHERE id = $1 AND cancellation_status = $5`,
		resID, db.CancellationRejected, now, adminID, db.CancellationPending,
	)
	if err != nil {
		return storeErr("reject cancellation", err)
	}
	return requireOneRow(result, "cancellation rejection lost a concurrent update")
}

// UpdateStatus moves a reservation between lifecycle states, conditional on
// the set of states the caller validated against.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, resID, newStatus string, from []string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($3)`,
		resID, newStatus, pq.Array(from),
	)
	if err != nil {
		return storeErr("update reservation status", err)
	}
	return requireOneRow(result, "status update lost a concurrent update")
}

func requireOneRow(result sql.Result, msg string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if affected == 0 {
		return errors.E(errors.KindConcurrencyConflict, msg)
	}
	return nil
}
