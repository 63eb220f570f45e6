package service

import (
	"context"

	"autorenta/internal/auth"
	"autorenta/internal/db"
	"autorenta/internal/errors"
	"autorenta/internal/repository"
)

type AdminService struct {
	users *repository.UserRepository
}

func NewAdminService(users *repository.UserRepository) *AdminService {
	return &AdminService{users: users}
}

func (s *AdminService) ListUsers(ctx context.Context, actor auth.Actor) ([]db.User, error) {
	if actor.Role != db.RoleAdmin {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to list users")
	}
	return s.users.ListUsers(ctx)
}

// ValidateAgency flips the validation flag that gates car listing.
func (s *AdminService) ValidateAgency(ctx context.Context, actor auth.Actor, agencyID string, validated bool) (*db.User, error) {
	if actor.Role != db.RoleAdmin {
		return nil, errors.E(errors.KindUnauthorized, "not authorized to validate agencies")
	}
	if err := s.users.SetAgencyValidated(ctx, agencyID, validated); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, agencyID)
}
