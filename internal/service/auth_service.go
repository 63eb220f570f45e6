package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/entities"
	"autorenta/internal/errors"
)

// UserAccountStore is the account surface, implemented by
// repository.UserRepository.
type UserAccountStore interface {
	CreateUser(ctx context.Context, user *db.User) error
	GetByEmail(ctx context.Context, email string) (*db.User, error)
}

type AuthService struct {
	Users UserAccountStore
}

func NewAuthService(users UserAccountStore) *AuthService {
	return &AuthService{Users: users}
}

// Register creates a customer or agency account. Agencies start
// unvalidated and cannot list cars until an admin validates them.
func (s *AuthService) Register(ctx context.Context, req entities.RegisterRequest) (*db.User, error) {
	role := req.Role
	if role == "" {
		role = db.RoleCustomer
	}
	if role != db.RoleCustomer && role != db.RoleAgency {
		return nil, errors.E(errors.KindUnauthorized, "cannot self-register with this role")
	}
	if req.Name == "" || req.Email == "" {
		return nil, errors.E(errors.KindInvalidRange, "name and email are required")
	}
	if len(req.Password) < 6 {
		return nil, errors.E(errors.KindInvalidRange, "password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		IsValidated:  role == db.RoleCustomer,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a JWT carrying the actor identity.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.KindOf(err) == errors.KindNotFound {
			return "", errors.E(errors.KindUnauthorized, "invalid credentials")
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", errors.E(errors.KindUnauthorized, "invalid credentials")
	}
	return auth.GenerateToken(user.ID, user.Role)
}
