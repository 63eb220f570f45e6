package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"autorenta/internal/db"
	"autorenta/internal/errors"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(database *sql.DB) *UserRepository {
	return &UserRepository{DB: database}
}

const userCols = `id, name, email, phone, password_hash, role, is_validated, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*db.User, error) {
	var u db.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.IsValidated, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *db.User) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, role, is_validated, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Role, user.IsValidated,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return storeErr("insert user", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.E(errors.KindNotFound, "user not found")
		}
		return nil, storeErr("query user by email", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Ef(errors.KindNotFound, "user %s not found", id)
		}
		return nil, storeErr("query user", err)
	}
	return user, nil
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]db.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, storeErr("query users", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate users", err)
	}
	return users, nil
}

// SetAgencyValidated flips the validation flag on an agency account.
func (r *UserRepository) SetAgencyValidated(ctx context.Context, id string, validated bool) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_validated = $2, updated_at = NOW()
		 WHERE id = $1 AND role = $3`,
		id, validated, db.RoleAgency,
	)
	if err != nil {
		return storeErr("update agency validation", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if affected == 0 {
		return errors.Ef(errors.KindNotFound, "agency %s not found", id)
	}
	return nil
}
