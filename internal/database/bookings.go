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

const bookingColumns = `id, customer_id, worker_id, service_id, min_price, max_price,
	start_at, end_at, status, amount, notes, created_at, modified_at, version`

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.WorkerID, &b.ServiceID, &b.MinPrice, &b.MaxPrice,
		&b.StartAt, &b.EndAt, &b.Status, &b.Amount, &b.Notes, &b.CreatedAt, &b.ModifiedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				customer_id, worker_id, service_id, min_price, max_price,
				start_at, end_at, status, amount, notes, created_at, modified_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		booking.CustomerID,
		booking.WorkerID,
		booking.ServiceID,
		booking.MinPrice,
		booking.MaxPrice,
		booking.StartAt.UTC(),
		utcPtr(booking.EndAt),
		booking.Status,
		booking.Amount,
		booking.Notes,
		booking.CreatedAt.UTC(),
		booking.ModifiedAt.UTC(),
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("booking %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID > 0 {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.WorkerID > 0 {
		where = append(where, "worker_id = ?")
		args = append(args, filter.WorkerID)
	}
	if filter.ServiceID > 0 {
		where = append(where, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingWithVersion replaces every mutable field, provided nobody has
// written the row since fromVersion was read.
func (db *DB) UpdateBookingWithVersion(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	query := `UPDATE bookings SET
				customer_id = ?, worker_id = ?, service_id = ?, min_price = ?, max_price = ?,
				start_at = ?, end_at = ?, status = ?, amount = ?, notes = ?, modified_at = ?,
				version = version + 1
			WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		booking.CustomerID,
		booking.WorkerID,
		booking.ServiceID,
		booking.MinPrice,
		booking.MaxPrice,
		booking.StartAt.UTC(),
		utcPtr(booking.EndAt),
		booking.Status,
		booking.Amount,
		booking.Notes,
		booking.ModifiedAt.UTC(),
		booking.ID,
		fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if err := rowsAffectedOrMissing(ctx, db, result, "bookings", booking.ID); err != nil {
		return err
	}
	booking.Version = fromVersion + 1
	return nil
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundf("booking %d", id)
	}
	return nil
}
