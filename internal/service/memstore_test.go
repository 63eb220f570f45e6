package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
	"autorenta/internal/repository"
	"autorenta/internal/utils"
)

// memStore is an in-memory stand-in for the Postgres repositories. It keeps
// the same atomicity contract: admission runs under the lock, and the
// cancellation transitions are conditional updates that fail with
// KindConcurrencyConflict when the guard no longer holds.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*db.User
	cars         map[string]*db.Car
	reservations map[string]*db.Reservation
	reviews      map[string]*db.Review
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*db.User),
		cars:         make(map[string]*db.Car),
		reservations: make(map[string]*db.Reservation),
		reviews:      make(map[string]*db.Review),
	}
}

func (m *memStore) putCar(car *db.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = car
}

func (m *memStore) putUser(user *db.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *memStore) putReservation(res *db.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.reservations[res.ID] = &cp
}

func (m *memStore) carAvailability(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cars[id].Availability
}

// --- CarStore / CarCatalog / UserStore ---

func (m *memStore) GetCar(ctx context.Context, id string) (*db.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[id]
	if !ok {
		return nil, errors.Ef(errors.KindNotFound, "car %s not found", id)
	}
	cp := *car
	return &cp, nil
}

func (m *memStore) CreateCar(ctx context.Context, car *db.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *car
	m.cars[car.ID] = &cp
	return nil
}

func (m *memStore) UpdateCar(ctx context.Context, car *db.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[car.ID]; !ok {
		return errors.Ef(errors.KindNotFound, "car %s not found", car.ID)
	}
	cp := *car
	m.cars[car.ID] = &cp
	return nil
}

func (m *memStore) DeleteCar(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[id]; !ok {
		return errors.Ef(errors.KindNotFound, "car %s not found", id)
	}
	delete(m.cars, id)
	return nil
}

func (m *memStore) ListCars(ctx context.Context, f entities.CarSearchFilters) ([]db.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Car
	for _, car := range m.cars {
		if f.City != "" && !strings.EqualFold(car.City, f.City) {
			continue
		}
		if f.Type != "" && !strings.EqualFold(car.Type, f.Type) {
			continue
		}
		if f.MinPrice > 0 && car.PricePerDay < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && car.PricePerDay > f.MaxPrice {
			continue
		}
		out = append(out, *car)
	}
	return out, nil
}

func (m *memStore) CreateUser(ctx context.Context, user *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return errors.E(errors.KindInvalidRange, "email already registered")
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.Ef(errors.KindNotFound, "user %s not found", email)
}

func (m *memStore) GetByID(ctx context.Context, id string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, errors.Ef(errors.KindNotFound, "user %s not found", id)
	}
	cp := *user
	return &cp, nil
}

// --- ReservationStore ---

func (m *memStore) CreateReservation(ctx context.Context, res *db.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[res.CarID]
	if !ok {
		return errors.Ef(errors.KindNotFound, "car %s not found", res.CarID)
	}
	if !car.Availability {
		return errors.E(errors.KindItemUnavailable, "car is not available")
	}
	for _, other := range m.reservations {
		if other.Code == res.Code {
			return errors.E(errors.KindConcurrencyConflict, "reservation code already taken")
		}
		if other.CarID != res.CarID || !other.Active() {
			continue
		}
		if utils.Overlaps(res.StartDate, res.EndDate, other.StartDate, other.EndDate) {
			return errors.E(errors.KindDateConflict, "car already reserved for selected dates")
		}
	}
	res.CreatedAt = time.Now().UTC()
	res.UpdatedAt = res.CreatedAt
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *memStore) GetReservation(ctx context.Context, id string) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, errors.Ef(errors.KindNotFound, "reservation %s not found", id)
	}
	cp := *res
	return &cp, nil
}

func (m *memStore) ListByCustomer(ctx context.Context, customerID string) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Reservation
	for _, res := range m.reservations {
		if res.CustomerID == customerID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveForCar(ctx context.Context, carID, excludeID string) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Reservation
	for _, res := range m.reservations {
		if res.CarID == carID && res.ID != excludeID && res.Active() {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveForCars(ctx context.Context, carIDs []string) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool, len(carIDs))
	for _, id := range carIDs {
		ids[id] = true
	}
	var out []db.Reservation
	for _, res := range m.reservations {
		if ids[res.CarID] && res.Active() {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memStore) ListReservations(ctx context.Context, date, status string) ([]db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Reservation
	for _, res := range m.reservations {
		if date != "" && res.StartDate.Format(utils.DateLayout) != date {
			continue
		}
		if status != "" && res.Status != status {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

// refundEligibleLocked mirrors the store: the count and the write happen
// under the same lock, so parallel cancellations cannot both slip under the
// cap. Callers must hold mu.
func (m *memStore) refundEligibleLocked(customerID, excludeID string) bool {
	count := 0
	for _, res := range m.reservations {
		if res.CustomerID == customerID && res.ID != excludeID &&
			res.Cancellation.Status == db.CancellationApproved {
			count++
		}
	}
	return count < repository.RefundCancellationCap
}

func (m *memStore) SubmitCancellationRequest(ctx context.Context, resID, customerID string, requestedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[resID]
	if !ok || !res.Active() || res.Cancellation.Status != db.CancellationNone {
		return errors.E(errors.KindConcurrencyConflict, "cancellation request lost a concurrent update")
	}
	res.Cancellation.Status = db.CancellationPending
	res.Cancellation.RequestedAt.Time = requestedAt
	res.Cancellation.RequestedAt.Valid = true
	if !res.Cancellation.RefundEligible.Valid {
		res.Cancellation.RefundEligible.Bool = m.refundEligibleLocked(customerID, resID)
		res.Cancellation.RefundEligible.Valid = true
	}
	res.Cancellation.FraudSuspected = false
	res.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ApproveCancellation(ctx context.Context, p repository.ApproveCancellationParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[p.ReservationID]
	if !ok || !res.Active() ||
		(res.Cancellation.Status != db.CancellationNone && res.Cancellation.Status != db.CancellationPending) {
		return errors.E(errors.KindConcurrencyConflict, "cancellation approval lost a concurrent update")
	}
	res.Status = db.StatusCancelled
	res.Cancellation.Status = db.CancellationApproved
	if !res.Cancellation.RequestedAt.Valid {
		res.Cancellation.RequestedAt.Time = p.Now
		res.Cancellation.RequestedAt.Valid = true
	}
	res.Cancellation.ApprovedAt.Time = p.Now
	res.Cancellation.ApprovedAt.Valid = true
	res.Cancellation.ApprovedBy.String = p.AdminID
	res.Cancellation.ApprovedBy.Valid = true
	if !res.Cancellation.RefundEligible.Valid {
		res.Cancellation.RefundEligible.Bool = m.refundEligibleLocked(p.CustomerID, p.ReservationID)
		res.Cancellation.RefundEligible.Valid = true
	}
	res.Cancellation.FraudSuspected = p.FraudSuspected
	res.UpdatedAt = time.Now().UTC()
	if p.FreeCar {
		if car, ok := m.cars[p.CarID]; ok && !car.Availability {
			car.Availability = true
		}
	}
	return nil
}

func (m *memStore) RejectCancellation(ctx context.Context, resID, adminID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[resID]
	if !ok || res.Cancellation.Status != db.CancellationPending {
		return errors.E(errors.KindConcurrencyConflict, "cancellation rejection lost a concurrent update")
	}
	res.Cancellation.Status = db.CancellationRejected
	res.Cancellation.ApprovedAt.Time = now
	res.Cancellation.ApprovedAt.Valid = true
	res.Cancellation.ApprovedBy.String = adminID
	res.Cancellation.ApprovedBy.Valid = true
	res.UpdatedAt = time.Now().UTC()
	return nil
}

// --- ReviewStore ---

func (m *memStore) CreateReview(ctx context.Context, review *db.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.CreatedAt = time.Now().UTC()
	cp := *review
	m.reviews[review.ID] = &cp
	return nil
}

func (m *memStore) ListByCar(ctx context.Context, carID string) ([]db.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Review
	for _, rv := range m.reviews {
		if rv.CarID == carID {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (m *memStore) HasEligibleReservation(ctx context.Context, customerID, carID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.reservations {
		if res.CustomerID == customerID && res.CarID == carID &&
			(res.Status == db.StatusConfirmed || res.Status == db.StatusCompleted) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, resID, newStatus string, from []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[resID]
	if !ok {
		return errors.E(errors.KindConcurrencyConflict, "status update lost a concurrent update")
	}
	for _, f := range from {
		if res.Status == f {
			res.Status = newStatus
			res.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.E(errors.KindConcurrencyConflict, "status update lost a concurrent update")
}
