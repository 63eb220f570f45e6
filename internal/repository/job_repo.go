package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"autorenta/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// GetConfirmedIDsPastEndDate returns confirmed reservations whose rental
// period is over and should move to completed.
func (r *JobRepository) GetConfirmedIDsPastEndDate(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM reservations WHERE status = $1 AND end_date < NOW()`,
		db.StatusConfirmed,
	)
	if err != nil {
		return nil, storeErr("query finished reservations", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan reservation id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate reservation ids", err)
	}
	return ids, nil
}

// UpdateReservationStatuses moves a batch of reservations to newStatus.
func (r *JobRepository) UpdateReservationStatuses(ctx context.Context, ids []string, newStatus string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = ANY($2)`,
		newStatus, pq.Array(ids),
	)
	if err != nil {
		return 0, storeErr("update reservation statuses", err)
	}
	return result.RowsAffected()
}
