package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"workmarket/internal/domain"
	"workmarket/internal/models"
)

const bidColumns = `id, job_gig_id, worker_id, amount, message, is_accepted, created_at`

func scanBid(row rowScanner) (*models.Bid, error) {
	b := &models.Bid{}
	err := row.Scan(&b.ID, &b.JobGigID, &b.WorkerID, &b.Amount, &b.Message, &b.IsAccepted, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) CreateBid(ctx context.Context, bid *models.Bid, statuses ...models.GigStatus) error {
	args := []any{
		bid.JobGigID,
		bid.WorkerID,
		bid.Amount,
		bid.Message,
		bid.CreatedAt.UTC(),
	}
	query := `INSERT INTO bids (job_gig_id, worker_id, amount, message, is_accepted, created_at)
			  VALUES (?, ?, ?, ?, 0, ?)`
	if len(statuses) > 0 {
		// проверка статуса и вставка одним запросом
		query = `INSERT INTO bids (job_gig_id, worker_id, amount, message, is_accepted, created_at)
			  SELECT ?, ?, ?, ?, 0, ? FROM job_gigs
			  WHERE id = ? AND status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		args = append(args, bid.JobGigID)
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}

	result, err := db.ExecContext(ctx, query, args...)
	if isForeignKeyViolation(err) {
		return domain.NotFoundf("job gig %d", bid.JobGigID)
	}
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return db.bidRejected(ctx, bid.JobGigID)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	bid.ID = id
	bid.IsAccepted = false
	return nil
}

// bidRejected explains why a conditional bid insert wrote nothing.
func (db *DB) bidRejected(ctx context.Context, gigID int64) error {
	var status string
	err := db.QueryRowContext(ctx, `SELECT status FROM job_gigs WHERE id = ?`, gigID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("job gig %d", gigID)
	}
	if err != nil {
		return fmt.Errorf("failed to read job gig %d: %w", gigID, err)
	}
	return domain.Conflictf("job gig %d is %s and does not accept bids", gigID, status)
}

func (db *DB) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	bid, err := scanBid(db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("bid %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

func (db *DB) ListBids(ctx context.Context, gigID int64) ([]*models.Bid, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE job_gig_id = ? ORDER BY id ASC`, gigID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	bids := make([]*models.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}
	return bids, nil
}

// AcceptBid marks bidID as the accepted bid of gigID and moves the gig to
// InProgress in one transaction. The gig update is conditional on
// accepted_bid_id still being NULL, and the partial unique index on bids
// backs it up, so two racing calls cannot both commit.
func (db *DB) AcceptBid(ctx context.Context, gigID, bidID int64, check domain.AcceptCheck) (*models.Bid, error) {
	var accepted *models.Bid
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		gig, err := getJobGig(ctx, tx, gigID)
		if err != nil {
			return err
		}

		bid, err := scanBid(tx.QueryRowContext(ctx,
			`SELECT `+bidColumns+` FROM bids WHERE id = ? AND job_gig_id = ?`, bidID, gigID))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("bid %d for job gig %d", bidID, gigID)
		}
		if err != nil {
			return fmt.Errorf("failed to get bid in tx: %w", err)
		}

		if gig.AcceptedBidID != nil {
			return domain.Conflictf("job gig %d already accepted bid %d", gigID, *gig.AcceptedBidID)
		}
		if check != nil {
			if err := check(gig); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE job_gigs SET accepted_bid_id = ?, status = ? WHERE id = ? AND accepted_bid_id IS NULL`,
			bidID, models.GigInProgress, gigID)
		if err != nil {
			return fmt.Errorf("failed to mark job gig accepted: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConcurrentModification
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE bids SET is_accepted = 1 WHERE id = ? AND job_gig_id = ? AND is_accepted = 0`,
			bidID, gigID)
		if isUniqueViolation(err) {
			return ErrConcurrentModification
		}
		if err != nil {
			return fmt.Errorf("failed to accept bid: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConcurrentModification
		}

		bid.IsAccepted = true
		accepted = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logger.Debug().Int64("gig_id", gigID).Int64("bid_id", bidID).Msg("Bid accepted")
	return accepted, nil
}
