package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
	"autorenta/internal/repository"
	"autorenta/internal/utils"
)

// Admission retries when a booking loses a serialization race in the store.
const maxAdmissionRetries = 3

// ReservationStore is the persistence surface the engine needs. Implemented
// by repository.ReservationRepository; tests substitute an in-memory store.
type ReservationStore interface {
	CreateReservation(ctx context.Context, res *db.Reservation) error
	GetReservation(ctx context.Context, id string) (*db.Reservation, error)
	ListByCustomer(ctx context.Context, customerID string) ([]db.Reservation, error)
	ListActiveForCar(ctx context.Context, carID, excludeID string) ([]db.Reservation, error)
	ListReservations(ctx context.Context, date, status string) ([]db.Reservation, error)
	SubmitCancellationRequest(ctx context.Context, resID, customerID string, requestedAt time.Time) error
	ApproveCancellation(ctx context.Context, p repository.ApproveCancellationParams) error
	RejectCancellation(ctx context.Context, resID, adminID string, now time.Time) error
	UpdateStatus(ctx context.Context, resID, newStatus string, from []string) error
}

// CarStore is the slice of the item catalog the engine reads.
type CarStore interface {
	GetCar(ctx context.Context, id string) (*db.Car, error)
}

// Notifier delivers reservation updates to the customer. Best effort,
// invoked after commit, never part of admission or transition decisions.
type Notifier interface {
	NotifyReservation(res *db.Reservation, event string)
}

// EventPublisher feeds downstream tooling, in particular the consumer of
// the fraud-suspected signal.
type EventPublisher interface {
	Publish(event entities.ReservationEvent)
}

// RefundIssuer hands an approved refund-eligible cancellation to the
// external payment service.
type RefundIssuer interface {
	Refund(paymentRef string) error
}

type ReservationService struct {
	Repo ReservationStore
	Cars CarStore

	// Optional collaborators, nil when not configured.
	Notifier Notifier
	Events   EventPublisher
	Refunds  RefundIssuer
}

func NewReservationService(repo ReservationStore, cars CarStore) *ReservationService {
	return &ReservationService{Repo: repo, Cars: cars}
}

// CheckAvailability is the pure admission check: no side effects, returns
// nil when a reservation for the range could be admitted right now. The
// booking path re-runs the same decision under a lock before committing.
func (s *ReservationService) CheckAvailability(ctx context.Context, carID string, start, end time.Time) error {
	if err := validateRange(start, end); err != nil {
		return err
	}
	car, err := s.Cars.GetCar(ctx, carID)
	if err != nil {
		return err
	}
	if !car.Availability {
		return errors.E(errors.KindItemUnavailable, "car is not available")
	}
	active, err := s.Repo.ListActiveForCar(ctx, carID, "")
	if err != nil {
		return err
	}
	for i := range active {
		if utils.Overlaps(start, end, active[i].StartDate, active[i].EndDate) {
			return errors.E(errors.KindDateConflict, "car already reserved for selected dates")
		}
	}
	return nil
}

// RequestBooking admits and creates a reservation for a customer. The
// admission re-check and the insert commit atomically in the store; a lost
// serialization race is retried here with a fresh read.
func (s *ReservationService) RequestBooking(ctx context.Context, actor auth.Actor, req entities.BookingRequest) (*db.Reservation, error) {
	if actor.Role != db.RoleCustomer {
		return nil, errors.E(errors.KindUnauthorized, "only customers can book reservations")
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	car, err := s.Cars.GetCar(ctx, req.CarID)
	if err != nil {
		return nil, err
	}
	if !car.Availability {
		return nil, errors.E(errors.KindItemUnavailable, "car is not available")
	}

	total, err := TotalPrice(start, end, car.PricePerDay)
	if err != nil {
		return nil, err
	}

	res := &db.Reservation{
		CustomerID: actor.ID,
		CarID:      car.ID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: total,
		Status:     db.StatusPending,
		Cancellation: db.Cancellation{
			Status: db.CancellationNone,
		},
	}
	if req.PaymentRef != "" {
		res.PaymentRef.String = req.PaymentRef
		res.PaymentRef.Valid = true
	}

	for attempt := 1; ; attempt++ {
		res.ID = uuid.NewString()
		res.Code = bookingCode(res.ID)
		err = s.Repo.CreateReservation(ctx, res)
		if err == nil {
			break
		}
		if errors.KindOf(err) == errors.KindConcurrencyConflict && attempt < maxAdmissionRetries {
			log.Printf("booking %s lost admission race (attempt %d), retrying", res.Code, attempt)
			continue
		}
		return nil, err
	}

	s.notify(res, "created")
	s.publish(res, entities.EventReservationCreated)
	return res, nil
}

// SetReservationStatus drives the lifecycle: pending -> confirmed ->
// completed by the owning agency or an admin, and finalization to cancelled
// by an admin only, which runs the approval half of the cancellation
// workflow.
func (s *ReservationService) SetReservationStatus(ctx context.Context, actor auth.Actor, resID, newStatus string) (*db.Reservation, error) {
	res, err := s.Repo.GetReservation(ctx, resID)
	if err != nil {
		return nil, err
	}
	car, err := s.Cars.GetCar(ctx, res.CarID)
	if err != nil {
		return nil, err
	}

	isOwningAgency := actor.Role == db.RoleAgency && car.OwnerID == actor.ID
	if actor.Role != db.RoleAdmin && !isOwningAgency {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to update reservation status")
	}
	if !res.Active() {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"reservation is already %s", res.Status)
	}

	switch newStatus {
	case db.StatusCancelled:
		// General update rights are not enough to finalize a cancellation.
		if actor.Role != db.RoleAdmin {
			return nil, errors.E(errors.KindUnauthorized, "only administrators can approve reservation cancellations")
		}
		return s.approveCancellation(ctx, actor, res, car)
	case db.StatusConfirmed:
		if res.Status != db.StatusPending {
			return nil, errors.Ef(errors.KindInvalidStateTransition,
				"cannot confirm a %s reservation", res.Status)
		}
	case db.StatusCompleted:
		// pending or confirmed, both guaranteed by Active above.
	default:
		return nil, errors.Ef(errors.KindInvalidStateTransition, "invalid status %q", newStatus)
	}

	if err := s.Repo.UpdateStatus(ctx, res.ID, newStatus, []string{res.Status}); err != nil {
		return nil, err
	}
	return s.Repo.GetReservation(ctx, res.ID)
}

// approveCancellation is path A of the cancellation workflow: an admin
// finalizes a cancellation, directly or acting on a pending customer
// request. Field values already set by the request path are preserved.
func (s *ReservationService) approveCancellation(ctx context.Context, actor auth.Actor, res *db.Reservation, car *db.Car) (*db.Reservation, error) {
	switch res.Cancellation.Status {
	case db.CancellationNone, db.CancellationPending:
	default:
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"cancellation is already %s", res.Cancellation.Status)
	}

	now := time.Now().UTC()

	hasOtherActive, err := s.hasOtherActiveOverlap(ctx, res)
	if err != nil {
		return nil, err
	}

	// Fraud heuristic: the car was switched off without a legitimate
	// concurrent booking to explain it, which points at the owner holding a
	// sham reservation to deny service.
	fraudSuspected := !hasOtherActive && !car.Availability

	err = s.Repo.ApproveCancellation(ctx, repository.ApproveCancellationParams{
		ReservationID:  res.ID,
		CarID:          car.ID,
		CustomerID:     res.CustomerID,
		AdminID:        actor.ID,
		Now:            now,
		FraudSuspected: fraudSuspected,
		FreeCar:        !hasOtherActive && !car.Availability,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	s.notify(updated, "cancelled")
	s.publish(updated, entities.EventReservationCancelled)
	s.issueRefund(updated)
	return updated, nil
}

// RequestCancellation is path B: the reservation's own customer files a
// request. The reservation status does not change; an admin must finalize
// via SetReservationStatus.
func (s *ReservationService) RequestCancellation(ctx context.Context, actor auth.Actor, resID string) (*db.Reservation, error) {
	res, err := s.Repo.GetReservation(ctx, resID)
	if err != nil {
		return nil, err
	}
	if res.CustomerID != actor.ID {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to cancel this reservation")
	}
	if !res.Active() {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"a %s reservation cannot be cancelled", res.Status)
	}
	switch res.Cancellation.Status {
	case db.CancellationPending:
		return nil, errors.E(errors.KindInvalidStateTransition, "cancellation request already pending approval")
	case db.CancellationApproved, db.CancellationRejected:
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"cancellation was already %s", res.Cancellation.Status)
	}

	now := time.Now().UTC()
	if !res.StartDate.After(now) {
		return nil, errors.E(errors.KindInvalidStateTransition, "cannot cancel a reservation that has already started")
	}

	if err := s.Repo.SubmitCancellationRequest(ctx, res.ID, res.CustomerID, now); err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	s.notify(updated, "cancellation requested")
	return updated, nil
}

// RejectCancellation closes a pending request without cancelling the
// reservation. Admin only; the sub-record is terminal afterwards.
func (s *ReservationService) RejectCancellation(ctx context.Context, actor auth.Actor, resID string) (*db.Reservation, error) {
	if actor.Role != db.RoleAdmin {
		return nil, errors.E(errors.KindUnauthorized, "only administrators can reject cancellation requests")
	}
	res, err := s.Repo.GetReservation(ctx, resID)
	if err != nil {
		return nil, err
	}
	if res.Cancellation.Status != db.CancellationPending {
		return nil, errors.E(errors.KindInvalidStateTransition, "no pending cancellation request to reject")
	}

	if err := s.Repo.RejectCancellation(ctx, res.ID, actor.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	s.notify(updated, "cancellation rejected")
	return updated, nil
}

// GetReservation returns a reservation snapshot to its customer, the
// owning agency or an admin.
func (s *ReservationService) GetReservation(ctx context.Context, actor auth.Actor, resID string) (*db.Reservation, error) {
	res, err := s.Repo.GetReservation(ctx, resID)
	if err != nil {
		return nil, err
	}
	if actor.Role == db.RoleAdmin || res.CustomerID == actor.ID {
		return res, nil
	}
	if actor.Role == db.RoleAgency {
		car, err := s.Cars.GetCar(ctx, res.CarID)
		if err != nil {
			return nil, err
		}
		if car.OwnerID == actor.ID {
			return res, nil
		}
	}
	return nil, errors.E(errors.KindUnauthorized, "not authorized to view this reservation")
}

// ListCustomerReservations returns a customer's reservations; admins may
// read any customer's history.
func (s *ReservationService) ListCustomerReservations(ctx context.Context, actor auth.Actor, customerID string) ([]db.Reservation, error) {
	if actor.Role != db.RoleAdmin && actor.ID != customerID {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to view these reservations")
	}
	return s.Repo.ListByCustomer(ctx, customerID)
}

// ListReservations is the admin listing with optional filters.
func (s *ReservationService) ListReservations(ctx context.Context, actor auth.Actor, date, status string) ([]db.Reservation, error) {
	if actor.Role != db.RoleAdmin {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to list reservations")
	}
	return s.Repo.ListReservations(ctx, date, status)
}

func (s *ReservationService) hasOtherActiveOverlap(ctx context.Context, res *db.Reservation) (bool, error) {
	others, err := s.Repo.ListActiveForCar(ctx, res.CarID, res.ID)
	if err != nil {
		return false, err
	}
	for i := range others {
		if utils.Overlaps(res.StartDate, res.EndDate, others[i].StartDate, others[i].EndDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *ReservationService) notify(res *db.Reservation, event string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.NotifyReservation(res, event)
}

func (s *ReservationService) publish(res *db.Reservation, eventType string) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(entities.ReservationEvent{
		Type:           eventType,
		ReservationID:  res.ID,
		Code:           res.Code,
		CarID:          res.CarID,
		CustomerID:     res.CustomerID,
		Status:         res.Status,
		RefundEligible: res.Cancellation.RefundEligible.Valid && res.Cancellation.RefundEligible.Bool,
		FraudSuspected: res.Cancellation.FraudSuspected,
		OccurredAt:     time.Now().UTC(),
	})
}

func (s *ReservationService) issueRefund(res *db.Reservation) {
	if s.Refunds == nil || !res.PaymentRef.Valid {
		return
	}
	if !res.Cancellation.RefundEligible.Valid || !res.Cancellation.RefundEligible.Bool {
		return
	}
	ref := res.PaymentRef.String
	code := res.Code
	go func() {
		if err := s.Refunds.Refund(ref); err != nil {
			log.Printf("refund for reservation %s failed: %v", code, err)
		}
	}()
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.E(errors.KindInvalidRange, "start and end dates are required")
	}
	if end.Before(start) {
		return errors.E(errors.KindInvalidRange, "end date before start date")
	}
	return nil
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := utils.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.KindInvalidRange, "invalid start date", err)
	}
	end, err := utils.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.KindInvalidRange, "invalid end date", err)
	}
	if err := validateRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// bookingCode derives the short human-facing code from the reservation ID,
// so two bookings can never share a code.
func bookingCode(id string) string {
	return strings.ToUpper(id[:8])
}
