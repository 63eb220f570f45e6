package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
)

func newCarService(store *memStore) *CarService {
	return NewCarService(store, store, store)
}

func validatedAgency(id string) *db.User {
	return &db.User{ID: id, Name: "Agency", Email: id + "@example.com", Role: db.RoleAgency, IsValidated: true}
}

func TestCreateCar(t *testing.T) {
	store := newMemStore()
	store.putUser(validatedAgency(agency.ID))
	svc := newCarService(store)

	car, err := svc.CreateCar(context.Background(), agency, entities.CarRequest{
		Brand: "Peugeot", Model: "208", Year: 2022, City: "Paris", PricePerDay: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, agency.ID, car.OwnerID)
	assert.True(t, car.Availability, "new cars start available")
	assert.NotEmpty(t, car.ID)
}

func TestCreateCarRejections(t *testing.T) {
	store := newMemStore()
	store.putUser(validatedAgency(agency.ID))
	unvalidated := &db.User{ID: otherAgency.ID, Role: db.RoleAgency, IsValidated: false}
	store.putUser(unvalidated)
	svc := newCarService(store)

	valid := entities.CarRequest{Brand: "Peugeot", Model: "208", Year: 2022, City: "Paris", PricePerDay: 45}

	t.Run("customer cannot list cars", func(t *testing.T) {
		_, err := svc.CreateCar(context.Background(), customer, valid)
		assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))
	})
	t.Run("unvalidated agency", func(t *testing.T) {
		_, err := svc.CreateCar(context.Background(), otherAgency, valid)
		assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))
	})
	t.Run("missing fields", func(t *testing.T) {
		req := valid
		req.City = ""
		_, err := svc.CreateCar(context.Background(), agency, req)
		assert.Equal(t, errors.KindInvalidRange, errors.KindOf(err))
	})
	t.Run("non-positive price", func(t *testing.T) {
		req := valid
		req.PricePerDay = 0
		_, err := svc.CreateCar(context.Background(), agency, req)
		assert.Equal(t, errors.KindInvalidRange, errors.KindOf(err))
	})
}

func TestUpdateCarOwnerOnly(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	svc := newCarService(store)

	newPrice := 80
	car, err := svc.UpdateCar(context.Background(), agency, "car-1", entities.CarUpdateRequest{
		PricePerDay: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, car.PricePerDay)
	assert.Equal(t, "Renault", car.Brand, "unset fields untouched")

	_, err = svc.UpdateCar(context.Background(), otherAgency, "car-1", entities.CarUpdateRequest{
		PricePerDay: &newPrice,
	})
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))
}

func TestUpdateCarKillSwitch(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	svc := newCarService(store)

	off := false
	car, err := svc.UpdateCar(context.Background(), agency, "car-1", entities.CarUpdateRequest{
		Availability: &off,
	})
	require.NoError(t, err)
	assert.False(t, car.Availability)
	assert.False(t, store.carAvailability("car-1"))
}

func TestDeleteCar(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	svc := newCarService(store)

	err := svc.DeleteCar(context.Background(), otherAgency, "car-1")
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))

	require.NoError(t, svc.DeleteCar(context.Background(), agency, "car-1"))
	_, err = svc.GetCar(context.Background(), "car-1")
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestSearchCarsDateFilter(t *testing.T) {
	store := newMemStore()
	store.putCar(testCar(true))
	store.putCar(&db.Car{
		ID: "car-2", OwnerID: agency.ID, Brand: "Fiat", Model: "500",
		Year: 2020, City: "Lyon", PricePerDay: 35, Availability: true,
	})
	seedReservation(store, "r1", customer.ID, db.StatusConfirmed,
		nextYear(time.July, 1), nextYear(time.July, 5))
	svc := newCarService(store)

	// Without dates both cars come back.
	all, err := svc.SearchCars(context.Background(), entities.CarSearchFilters{City: "Lyon"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// A range overlapping car-1's reservation drops it.
	free, err := svc.SearchCars(context.Background(), entities.CarSearchFilters{
		City:      "Lyon",
		StartDate: dateStr(nextYear(time.July, 4)),
		EndDate:   dateStr(nextYear(time.July, 8)),
	})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "car-2", free[0].ID)

	// A disjoint range keeps both.
	later, err := svc.SearchCars(context.Background(), entities.CarSearchFilters{
		City:      "Lyon",
		StartDate: dateStr(nextYear(time.July, 6)),
		EndDate:   dateStr(nextYear(time.July, 8)),
	})
	require.NoError(t, err)
	assert.Len(t, later, 2)
}
