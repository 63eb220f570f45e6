package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"

	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
)

type CarRepository struct {
	DB *sql.DB
}

func NewCarRepository(database *sql.DB) *CarRepository {
	return &CarRepository{DB: database}
}

const carCols = `
	id, owner_id, brand, model, year, city, price_per_day, type, photos,
	availability, created_at, updated_at`

func scanCar(row interface{ Scan(...any) error }) (*db.Car, error) {
	var c db.Car
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.Year, &c.City,
		&c.PricePerDay, &c.Type, pq.Array(&c.Photos), &c.Availability,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CarRepository) CreateCar(ctx context.Context, car *db.Car) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO cars
		 (id, owner_id, brand, model, year, city, price_per_day, type, photos, availability, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		car.ID, car.OwnerID, car.Brand, car.Model, car.Year, car.City,
		car.PricePerDay, car.Type, pq.Array(car.Photos), car.Availability,
	).Scan(&car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		return storeErr("insert car", err)
	}
	return nil
}

func (r *CarRepository) GetCar(ctx context.Context, id string) (*db.Car, error) {
	car, err := scanCar(r.DB.QueryRowContext(ctx,
		`SELECT`+carCols+` FROM cars WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Ef(errors.KindNotFound, "car %s not found", id)
		}
		return nil, storeErr("query car", err)
	}
	return car, nil
}

func (r *CarRepository) UpdateCar(ctx context.Context, car *db.Car) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE cars SET
			brand = $2, model = $3, year = $4, city = $5, price_per_day = $6,
			type = $7, photos = $8, availability = $9, updated_at = NOW()
		 WHERE id = $1`,
		car.ID, car.Brand, car.Model, car.Year, car.City, car.PricePerDay,
		car.Type, pq.Array(car.Photos), car.Availability,
	)
	if err != nil {
		return storeErr("update car", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if affected == 0 {
		return errors.Ef(errors.KindNotFound, "car %s not found", car.ID)
	}
	return nil
}

func (r *CarRepository) DeleteCar(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete car", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if affected == 0 {
		return errors.Ef(errors.KindNotFound, "car %s not found", id)
	}
	return nil
}

// ListCars applies catalog filters. Date-range exclusion happens in the
// service, which checks the reservation set with the shared overlap rule.
func (r *CarRepository) ListCars(ctx context.Context, f entities.CarSearchFilters) ([]db.Car, error) {
	query := `SELECT` + carCols + ` FROM cars WHERE 1=1`
	args := []any{}
	if f.City != "" {
		args = append(args, f.City)
		query += fmt.Sprintf(" AND city ILIKE $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND type ILIKE $%d", len(args))
	}
	if f.MinPrice > 0 {
		args = append(args, f.MinPrice)
		query += fmt.Sprintf(" AND price_per_day >= $%d", len(args))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		query += fmt.Sprintf(" AND price_per_day <= $%d", len(args))
	}
	query += " ORDER BY city, price_per_day"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query cars", err)
	}
	defer rows.Close()

	var cars []db.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, storeErr("scan car", err)
		}
		cars = append(cars, *car)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate cars", err)
	}
	return cars, nil
}
