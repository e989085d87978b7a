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

const gigColumns = `id, customer_id, service_id, title, description, budget,
	workers_required, duration_days, status, accepted_bid_id, created_at`

func scanJobGig(row rowScanner) (*models.JobGig, error) {
	g := &models.JobGig{}
	err := row.Scan(
		&g.ID, &g.CustomerID, &g.ServiceID, &g.Title, &g.Description, &g.Budget,
		&g.WorkersRequired, &g.DurationDays, &g.Status, &g.AcceptedBidID, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *DB) CreateJobGig(ctx context.Context, gig *models.JobGig) error {
	query := `INSERT INTO job_gigs (
				customer_id, service_id, title, description, budget,
				workers_required, duration_days, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		gig.CustomerID,
		gig.ServiceID,
		gig.Title,
		gig.Description,
		gig.Budget,
		gig.WorkersRequired,
		gig.DurationDays,
		gig.Status,
		gig.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job gig: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	gig.ID = id
	return nil
}

func (db *DB) GetJobGig(ctx context.Context, id int64) (*models.JobGig, error) {
	return getJobGig(ctx, db, id)
}

func getJobGig(ctx context.Context, q queryRower, id int64) (*models.JobGig, error) {
	gig, err := scanJobGig(q.QueryRowContext(ctx, `SELECT `+gigColumns+` FROM job_gigs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("job gig %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job gig: %w", err)
	}
	return gig, nil
}

func (db *DB) ListJobGigs(ctx context.Context, filter models.GigFilter) ([]*models.JobGig, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID > 0 {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.ServiceID > 0 {
		where = append(where, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + gigColumns + ` FROM job_gigs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job gigs: %w", err)
	}
	defer rows.Close()

	gigs := make([]*models.JobGig, 0)
	for rows.Next() {
		g, err := scanJobGig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job gig: %w", err)
		}
		gigs = append(gigs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job gigs: %w", err)
	}
	return gigs, nil
}

// UpdateJobGigStatus moves the gig only if it is still in status from.
func (db *DB) UpdateJobGigStatus(ctx context.Context, id int64, from, to models.GigStatus) error {
	result, err := db.ExecContext(ctx, `UPDATE job_gigs SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update job gig status: %w", err)
	}
	return rowsAffectedOrMissing(ctx, db, result, "job_gigs", id)
}

// DeleteJobGig removes the gig; its bids go with it through ON DELETE CASCADE.
func (db *DB) DeleteJobGig(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM job_gigs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job gig: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundf("job gig %d", id)
	}
	return nil
}
