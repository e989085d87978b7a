package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/lifecycle"
	"workmarket/internal/metrics"
	"workmarket/internal/models"
	"workmarket/internal/validation"
)

const lockRetryInterval = 25 * time.Millisecond

// LedgerPolicy carries the workflow switches the ledger obeys.
type LedgerPolicy struct {
	AllowLateBids     bool
	StrictTransitions bool
	LockTTL           time.Duration
	LockWait          time.Duration
	RateLimit         int
	RateWindow        time.Duration
}

// BidLedger records bids against job gigs and settles the single winner.
// Exclusivity is enforced by the storage layer; the coordination lock only
// keeps competing accepts of one gig from piling onto the database.
type BidLedger struct {
	bids   domain.BidRepository
	gigs   domain.GigRepository
	coord  domain.CoordinationStore
	policy LedgerPolicy
	now    clock
	logger *zerolog.Logger
}

func NewBidLedger(bids domain.BidRepository, gigs domain.GigRepository, coord domain.CoordinationStore, policy LedgerPolicy, logger *zerolog.Logger) *BidLedger {
	l := logger.With().Str("component", "bid_ledger").Logger()
	return &BidLedger{
		bids:   bids,
		gigs:   gigs,
		coord:  coord,
		policy: policy,
		now:    utcNow,
		logger: &l,
	}
}

// AddBid stores a new, unaccepted bid on an existing gig.
func (l *BidLedger) AddBid(ctx context.Context, draft *models.Bid) (*models.Bid, error) {
	if err := rejectDraft("bid", validation.Bid(draft)); err != nil {
		return nil, err
	}

	gig, err := l.gigs.GetJobGig(ctx, draft.JobGigID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.AcceptsBids(gig.Status, l.policy.AllowLateBids) {
		return nil, rejectDraft("bid", []string{fmt.Sprintf("job gig %d is %s and does not accept bids", gig.ID, gig.Status)})
	}

	// квота расходуется только на заявки, которые дошли до записи
	if err := l.checkRate(ctx, draft.WorkerID); err != nil {
		return nil, err
	}

	bid := *draft
	bid.ID = 0
	bid.IsAccepted = false
	bid.CreatedAt = l.now()
	// статус гига мог смениться после чтения, запись проверяет его ещё раз
	if err := l.bids.CreateBid(ctx, &bid, lifecycle.BiddableStatuses(l.policy.AllowLateBids)...); err != nil {
		return nil, err
	}

	l.logger.Info().
		Int64("bid_id", bid.ID).
		Int64("gig_id", bid.JobGigID).
		Int64("worker_id", bid.WorkerID).
		Str("amount", bid.Amount.String()).
		Msg("Bid added")
	return &bid, nil
}

func (l *BidLedger) checkRate(ctx context.Context, workerID int64) error {
	if l.coord == nil || l.policy.RateLimit <= 0 || l.policy.RateWindow <= 0 {
		return nil
	}
	ok, err := l.coord.CheckRateLimit(ctx, fmt.Sprintf("bids:worker:%d", workerID), l.policy.RateLimit, l.policy.RateWindow)
	if err != nil {
		// лимит не критичен, пропускаем
		l.logger.Warn().Err(err).Int64("worker_id", workerID).Msg("Bid rate limit check failed")
		return nil
	}
	if !ok {
		return fmt.Errorf("worker %d placed too many bids: %w", workerID, domain.ErrRateLimited)
	}
	return nil
}

// Accept marks bidID as the winning bid of gigID and moves the gig to
// InProgress in the same transaction.
func (l *BidLedger) Accept(ctx context.Context, gigID, bidID int64) (*models.BidAcceptance, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveAcceptDuration(time.Since(started).Seconds())
	}()

	release, err := l.lockGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	defer release()

	var previous models.GigStatus
	check := func(g *models.JobGig) error {
		previous = g.Status
		return lifecycle.ValidateGigAcceptance(g.Status)
	}

	bid, err := l.bids.AcceptBid(ctx, gigID, bidID, check)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Int64("gig_id", gigID).
		Int64("bid_id", bidID).
		Int64("worker_id", bid.WorkerID).
		Str("from", string(previous)).
		Msg("Bid accepted")
	return &models.BidAcceptance{
		Bid:            bid,
		GigID:          gigID,
		PreviousStatus: previous,
		AcceptedAt:     l.now(),
	}, nil
}

func (l *BidLedger) List(ctx context.Context, gigID int64) ([]*models.Bid, error) {
	return l.bids.ListBids(ctx, gigID)
}

// lockGig waits up to LockWait for the per-gig lock. A broken coordination
// store does not block accepts: the database guard still holds.
func (l *BidLedger) lockGig(ctx context.Context, gigID int64) (func(), error) {
	noop := func() {}
	if l.coord == nil || l.policy.LockTTL <= 0 {
		return noop, nil
	}

	key := fmt.Sprintf("gig:%d", gigID)
	deadline := time.Now().Add(l.policy.LockWait)
	for {
		token, acquired, err := l.coord.TryLock(ctx, key, l.policy.LockTTL)
		if err != nil {
			l.logger.Warn().Err(err).Int64("gig_id", gigID).Msg("Accept lock unavailable, relying on database guard")
			return noop, nil
		}
		if acquired {
			return func() {
				// снимаем блокировку даже если запрос уже отменён
				unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := l.coord.Unlock(unlockCtx, key, token); err != nil {
					l.logger.Warn().Err(err).Int64("gig_id", gigID).Msg("Failed to release accept lock")
				}
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, domain.Conflictf("job gig %d is being accepted by another request", gigID)
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(domain.Conflictf("job gig %d accept lock wait aborted", gigID), ctx.Err())
		case <-timer.C:
		}
	}
}
