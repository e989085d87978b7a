package service

import (
	"context"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/models"
	"workmarket/internal/validation"
)

// CatalogService manages the reference records bookings and bids point at.
type CatalogService struct {
	repo   domain.CatalogRepository
	now    clock
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.CatalogRepository, logger *zerolog.Logger) *CatalogService {
	l := logger.With().Str("component", "catalog_service").Logger()
	return &CatalogService{repo: repo, now: utcNow, logger: &l}
}

func (s *CatalogService) CreateWorker(ctx context.Context, draft *models.Worker) (*models.Worker, error) {
	if err := rejectDraft("worker", validation.Worker(draft)); err != nil {
		return nil, err
	}
	worker := *draft
	if draft.Address != nil {
		addr := *draft.Address
		worker.Address = &addr
	}
	worker.ID = 0
	worker.CreatedAt = s.now()
	if err := s.repo.CreateWorker(ctx, &worker); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("worker_id", worker.ID).Str("name", worker.DisplayName()).Msg("Worker created")
	return &worker, nil
}

func (s *CatalogService) GetWorker(ctx context.Context, id int64) (*models.Worker, error) {
	return s.repo.GetWorker(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, draft *models.Service) (*models.Service, error) {
	if err := rejectDraft("service", validation.Service(draft)); err != nil {
		return nil, err
	}
	svc := *draft
	svc.ID = 0
	svc.CreatedAt = s.now()
	if err := s.repo.CreateService(ctx, &svc); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("service_id", svc.ID).Str("name", svc.Name).Msg("Service created")
	return &svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	return s.repo.GetService(ctx, id)
}

// CreateReview requires the reviewed worker to exist.
func (s *CatalogService) CreateReview(ctx context.Context, draft *models.Review) (*models.Review, error) {
	if err := rejectDraft("review", validation.Review(draft)); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetWorker(ctx, draft.WorkerID); err != nil {
		return nil, err
	}
	review := *draft
	review.ID = 0
	review.CreatedAt = s.now()
	if err := s.repo.CreateReview(ctx, &review); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("review_id", review.ID).Int64("worker_id", review.WorkerID).Int("rating", review.Rating).Msg("Review created")
	return &review, nil
}

func (s *CatalogService) ListReviews(ctx context.Context, workerID int64) ([]*models.Review, error) {
	if _, err := s.repo.GetWorker(ctx, workerID); err != nil {
		return nil, err
	}
	return s.repo.ListReviewsByWorker(ctx, workerID)
}
