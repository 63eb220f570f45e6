package service

import (
	"context"
	"fmt"
	"log"

	"autorenta/internal/db"
	"autorenta/internal/repository"
)

type JobService struct {
	Repo *repository.JobRepository
}

func NewJobService(repo *repository.JobRepository) *JobService {
	return &JobService{Repo: repo}
}

// CompleteFinishedReservations moves confirmed reservations past their end
// date to completed. This is the scheduled driver of the completed state;
// it runs hourly and is idempotent.
func (s *JobService) CompleteFinishedReservations(ctx context.Context) error {
	ids, err := s.Repo.GetConfirmedIDsPastEndDate(ctx)
	if err != nil {
		return fmt.Errorf("cron job: failed to get finished reservations: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	updated, err := s.Repo.UpdateReservationStatuses(ctx, ids, db.StatusCompleted)
	if err != nil {
		return fmt.Errorf("cron job: failed to complete reservations: %w", err)
	}
	log.Printf("Cron Job: marked %d reservations as completed", updated)
	return nil
}
