package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/events"
	"workmarket/internal/lifecycle"
	"workmarket/internal/metrics"
	"workmarket/internal/models"
	"workmarket/internal/validation"
)

// GigService runs the job gig lifecycle on top of the bid ledger.
type GigService struct {
	gigs     domain.GigRepository
	catalog  domain.CatalogRepository
	ledger   *BidLedger
	strict   bool
	eventBus domain.EventPublisher
	now      clock
	logger   *zerolog.Logger
}

func NewGigService(gigs domain.GigRepository, catalog domain.CatalogRepository, ledger *BidLedger, eventBus domain.EventPublisher, logger *zerolog.Logger) *GigService {
	l := logger.With().Str("component", "gig_service").Logger()
	return &GigService{
		gigs:     gigs,
		catalog:  catalog,
		ledger:   ledger,
		strict:   ledger.policy.StrictTransitions,
		eventBus: eventBus,
		now:      utcNow,
		logger:   &l,
	}
}

// Create stores a new gig. Every gig starts Open with no accepted bid.
func (s *GigService) Create(ctx context.Context, draft *models.JobGig) (*models.JobGig, error) {
	if err := rejectDraft(models.EntityJobGig, validation.JobGig(draft)); err != nil {
		return nil, err
	}

	gig := *draft
	gig.ID = 0
	gig.Status = models.GigOpen
	gig.AcceptedBidID = nil
	gig.Bids = nil
	gig.CreatedAt = s.now()
	if err := s.gigs.CreateJobGig(ctx, &gig); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create job gig")
		return nil, err
	}

	s.logger.Info().Int64("gig_id", gig.ID).Int64("customer_id", gig.CustomerID).Msg("Job gig created")
	publish(s.eventBus, s.logger, events.EventGigCreated, gigPayload(&gig))
	return &gig, nil
}

// Get returns the gig together with its bids.
func (s *GigService) Get(ctx context.Context, id int64) (*models.JobGig, error) {
	gig, err := s.gigs.GetJobGig(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.ledger.List(ctx, id)
	if err != nil {
		return nil, err
	}
	gig.Bids = bids
	return gig, nil
}

func (s *GigService) List(ctx context.Context, filter models.GigFilter) ([]*models.JobGig, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError([]string{fmt.Sprintf("status %q is not a known gig status", filter.Status)})
	}
	return s.gigs.ListJobGigs(ctx, filter)
}

func (s *GigService) ChangeStatus(ctx context.Context, id int64, status models.GigStatus) (*models.JobGig, error) {
	if !status.Valid() {
		return nil, rejectDraft(models.EntityJobGig, []string{fmt.Sprintf("status %q is not a known gig status", status)})
	}

	gig, err := s.gigs.GetJobGig(ctx, id)
	if err != nil {
		return nil, err
	}
	from := gig.Status
	if err := lifecycle.ValidateGigTransition(from, status, s.strict); err != nil {
		metrics.ObserveTransition(models.EntityJobGig, string(from), string(status), "rejected")
		s.logger.Warn().Int64("gig_id", id).Str("from", string(from)).Str("to", string(status)).Msg("Illegal gig transition")
		return nil, err
	}

	if err := s.gigs.UpdateJobGigStatus(ctx, id, from, status); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveTransition(models.EntityJobGig, string(from), string(status), "conflict")
		}
		return nil, err
	}
	gig.Status = status

	metrics.ObserveTransition(models.EntityJobGig, string(from), string(status), "ok")
	s.logger.Info().Int64("gig_id", id).Str("from", string(from)).Str("to", string(status)).Msg("Job gig status changed")
	if from != status {
		publish(s.eventBus, s.logger, events.EventGigStatusChanged,
			statusChanged(models.EntityJobGig, id, string(from), string(status), s.now()))
	}
	return gig, nil
}

// AddBid records the bid and returns it with the worker's display data.
func (s *GigService) AddBid(ctx context.Context, draft *models.Bid) (*models.BidView, error) {
	if err := rejectDraft("bid", validation.Bid(draft)); err != nil {
		return nil, err
	}
	worker, err := s.catalog.GetWorker(ctx, draft.WorkerID)
	if err != nil {
		return nil, err
	}

	bid, err := s.ledger.AddBid(ctx, draft)
	if err != nil {
		return nil, err
	}

	publish(s.eventBus, s.logger, events.EventBidAdded, events.BidEventPayload{
		BidID:    bid.ID,
		GigID:    bid.JobGigID,
		WorkerID: bid.WorkerID,
		Amount:   bid.Amount.String(),
		At:       bid.CreatedAt,
	})
	return &models.BidView{
		Bid:          bid,
		WorkerName:   worker.DisplayName(),
		WorkerRating: worker.Rating,
	}, nil
}

func (s *GigService) ListBids(ctx context.Context, gigID int64) ([]*models.Bid, error) {
	if _, err := s.gigs.GetJobGig(ctx, gigID); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, gigID)
}

// AcceptBid settles the gig on one bid. Losing a race against another accept
// yields a conflict; a bid from another gig yields not found.
func (s *GigService) AcceptBid(ctx context.Context, gigID, bidID int64) (*models.BidAcceptance, error) {
	acceptance, err := s.ledger.Accept(ctx, gigID, bidID)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, domain.ErrConflict):
			outcome = "conflict"
		case errors.Is(err, domain.ErrNotFound):
			outcome = "not_found"
		case errors.Is(err, domain.ErrIllegalTransition):
			outcome = "rejected"
		}
		metrics.IncBidAcceptance(outcome)
		s.logger.Warn().Err(err).Int64("gig_id", gigID).Int64("bid_id", bidID).Msg("Bid acceptance failed")
		return nil, err
	}

	metrics.IncBidAcceptance("ok")
	metrics.ObserveTransition(models.EntityJobGig, string(acceptance.PreviousStatus), string(models.GigInProgress), "ok")
	publish(s.eventBus, s.logger, events.EventBidAccepted, events.BidEventPayload{
		BidID:    acceptance.Bid.ID,
		GigID:    gigID,
		WorkerID: acceptance.Bid.WorkerID,
		Amount:   acceptance.Bid.Amount.String(),
		At:       acceptance.AcceptedAt,
	})
	if acceptance.PreviousStatus != models.GigInProgress {
		publish(s.eventBus, s.logger, events.EventGigStatusChanged,
			statusChanged(models.EntityJobGig, gigID, string(acceptance.PreviousStatus), string(models.GigInProgress), acceptance.AcceptedAt))
	}
	return acceptance, nil
}

func (s *GigService) Delete(ctx context.Context, id int64) error {
	if err := s.gigs.DeleteJobGig(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("gig_id", id).Msg("Job gig deleted")
	publish(s.eventBus, s.logger, events.EventGigDeleted, events.GigEventPayload{GigID: id, At: s.now()})
	return nil
}

func gigPayload(g *models.JobGig) events.GigEventPayload {
	return events.GigEventPayload{
		GigID:      g.ID,
		CustomerID: g.CustomerID,
		ServiceID:  g.ServiceID,
		Status:     string(g.Status),
		At:         g.CreatedAt,
	}
}
