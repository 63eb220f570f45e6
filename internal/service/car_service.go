package service

import (
	"context"

	"github.com/google/uuid"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
	"autorenta/internal/utils"
)

// CarCatalog is the catalog surface, implemented by repository.CarRepository.
type CarCatalog interface {
	CreateCar(ctx context.Context, car *db.Car) error
	GetCar(ctx context.Context, id string) (*db.Car, error)
	UpdateCar(ctx context.Context, car *db.Car) error
	DeleteCar(ctx context.Context, id string) error
	ListCars(ctx context.Context, f entities.CarSearchFilters) ([]db.Car, error)
}

// UserStore is the slice of user data services read.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*db.User, error)
}

// ActiveReservationLister supplies the reservation set the date-filtered
// search derives availability from.
type ActiveReservationLister interface {
	ListActiveForCars(ctx context.Context, carIDs []string) ([]db.Reservation, error)
}

type CarService struct {
	Repo         CarCatalog
	Users        UserStore
	Reservations ActiveReservationLister
}

func NewCarService(repo CarCatalog, users UserStore, reservations ActiveReservationLister) *CarService {
	return &CarService{Repo: repo, Users: users, Reservations: reservations}
}

// CreateCar adds a car to the catalog. Only validated agency accounts may
// list cars.
func (s *CarService) CreateCar(ctx context.Context, actor auth.Actor, req entities.CarRequest) (*db.Car, error) {
	if actor.Role != db.RoleAgency {
		return nil, errors.E(errors.KindUnauthorized, "only agencies can add cars")
	}
	owner, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !owner.IsValidated {
		return nil, errors.E(errors.KindUnauthorized, "agency account not validated")
	}
	if req.Brand == "" || req.Model == "" || req.City == "" {
		return nil, errors.E(errors.KindInvalidRange, "brand, model and city are required")
	}
	if req.PricePerDay <= 0 {
		return nil, errors.E(errors.KindInvalidRange, "price_per_day must be positive")
	}

	car := &db.Car{
		ID:           uuid.NewString(),
		OwnerID:      actor.ID,
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		City:         req.City,
		PricePerDay:  req.PricePerDay,
		Type:         req.Type,
		Photos:       req.Photos,
		Availability: true,
	}
	if err := s.Repo.CreateCar(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *CarService) GetCar(ctx context.Context, id string) (*db.Car, error) {
	return s.Repo.GetCar(ctx, id)
}

// UpdateCar applies a partial update, owner only. Setting Availability to
// false here is the agency kill-switch consulted by admission; the engine
// flips it back on when a cancellation frees the car.
func (s *CarService) UpdateCar(ctx context.Context, actor auth.Actor, id string, req entities.CarUpdateRequest) (*db.Car, error) {
	car, err := s.Repo.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != actor.ID {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to update this car")
	}

	if req.Brand != nil {
		car.Brand = *req.Brand
	}
	if req.Model != nil {
		car.Model = *req.Model
	}
	if req.Year != nil {
		car.Year = *req.Year
	}
	if req.City != nil {
		car.City = *req.City
	}
	if req.PricePerDay != nil {
		if *req.PricePerDay <= 0 {
			return nil, errors.E(errors.KindInvalidRange, "price_per_day must be positive")
		}
		car.PricePerDay = *req.PricePerDay
	}
	if req.Type != nil {
		car.Type = *req.Type
	}
	if req.Photos != nil {
		car.Photos = req.Photos
	}
	if req.Availability != nil {
		car.Availability = *req.Availability
	}

	if err := s.Repo.UpdateCar(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *CarService) DeleteCar(ctx context.Context, actor auth.Actor, id string) error {
	car, err := s.Repo.GetCar(ctx, id)
	if err != nil {
		return err
	}
	if car.OwnerID != actor.ID {
		return errors.E(errors.KindUnauthorized, "not authorized to delete this car")
	}
	return s.Repo.DeleteCar(ctx, id)
}

// SearchCars lists the catalog. With a date range set it drops every car
// holding an overlapping pending or confirmed reservation, the bulk form of
// the admission rule, decided by the same overlap predicate.
func (s *CarService) SearchCars(ctx context.Context, f entities.CarSearchFilters) ([]db.Car, error) {
	cars, err := s.Repo.ListCars(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.StartDate == "" && f.EndDate == "" {
		return cars, nil
	}

	start, end, err := parseRange(f.StartDate, f.EndDate)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(cars))
	for i := range cars {
		ids[i] = cars[i].ID
	}
	active, err := s.Reservations.ListActiveForCars(ctx, ids)
	if err != nil {
		return nil, err
	}

	conflicting := make(map[string]bool)
	for i := range active {
		if utils.Overlaps(start, end, active[i].StartDate, active[i].EndDate) {
			conflicting[active[i].CarID] = true
		}
	}

	available := cars[:0]
	for _, car := range cars {
		if !conflicting[car.ID] {
			available = append(available, car)
		}
	}
	return available, nil
}
