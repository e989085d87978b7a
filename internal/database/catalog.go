package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"workmarket/internal/domain"
	"workmarket/internal/models"
)

func (db *DB) CreateWorker(ctx context.Context, w *models.Worker) error {
	query := `INSERT INTO workers (
				first_name, last_name, email, phone, hourly_rate, rating, years_of_experience,
				bio, street, city, postal_code, country, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	addr := w.Address
	if addr == nil {
		addr = &models.Address{}
	}
	result, err := db.ExecContext(ctx, query,
		w.FirstName, w.LastName, w.Email, w.Phone, w.HourlyRate, w.Rating, w.YearsOfExperience,
		w.Bio, addr.Street, addr.City, addr.PostalCode, addr.Country, w.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	w.ID = id
	return nil
}

func (db *DB) GetWorker(ctx context.Context, id int64) (*models.Worker, error) {
	query := `SELECT id, first_name, last_name, email, phone, hourly_rate, rating, years_of_experience,
				bio, street, city, postal_code, country, created_at
			  FROM workers WHERE id = ?`
	var (
		w                             models.Worker
		street, city, postal, country sql.NullString
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Phone, &w.HourlyRate, &w.Rating, &w.YearsOfExperience,
		&w.Bio, &street, &city, &postal, &country, &w.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("worker %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	if street.Valid || city.Valid || postal.Valid || country.Valid {
		w.Address = &models.Address{
			Street:     street.String,
			City:       city.String,
			PostalCode: postal.String,
			Country:    country.String,
		}
	}
	return &w, nil
}

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	query := `INSERT INTO services (name, description, fee, total_jobs, created_at) VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, s.Name, s.Description, s.Fee, s.TotalJobs, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	s.ID = id
	return nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, fee, total_jobs, created_at FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.Fee, &s.TotalJobs, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("service %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	query := `INSERT INTO reviews (customer_id, worker_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, r.CustomerID, r.WorkerID, r.Rating, r.Comment, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	return nil
}

func (db *DB) ListReviewsByWorker(ctx context.Context, workerID int64) ([]*models.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, customer_id, worker_id, rating, comment, created_at
		 FROM reviews WHERE worker_id = ? ORDER BY created_at DESC, id DESC`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		r := &models.Review{}
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.WorkerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
