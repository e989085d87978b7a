// Package validation holds the field rules checked before any record is written.
// Every rule for an entity runs; the result lists all failures in a stable order.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"workmarket/internal/models"
)

type collector []string

func (c *collector) check(ok bool, msg string) {
	if !ok {
		*c = append(*c, msg)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func Worker(w *models.Worker) []string {
	if w == nil {
		return []string{"worker is required"}
	}
	var errs collector
	errs.check(!blank(w.FirstName), "first_name is required")
	errs.check(!blank(w.LastName), "last_name is required")
	errs.check(!blank(w.Email), "email is required")
	errs.check(!blank(w.Phone), "phone is required")
	errs.check(!w.HourlyRate.IsNegative(), "hourly_rate must be >= 0")
	errs.check(w.Rating >= 0 && w.Rating <= 5, "rating must be between 0 and 5")
	errs.check(w.YearsOfExperience >= 0, "years_of_experience must be >= 0")
	if w.Address == nil {
		errs = append(errs, "address is required")
	} else {
		errs.check(!blank(w.Address.Street), "address.street is required")
		errs.check(!blank(w.Address.City), "address.city is required")
		errs.check(!blank(w.Address.PostalCode), "address.postal_code is required")
	}
	return errs
}

func Service(s *models.Service) []string {
	if s == nil {
		return []string{"service is required"}
	}
	var errs collector
	errs.check(!blank(s.Name), "name is required")
	errs.check(!s.Fee.IsNegative(), "fee must be >= 0")
	errs.check(s.TotalJobs >= 0, "total_jobs must be >= 0")
	return errs
}

func Booking(b *models.Booking) []string {
	if b == nil {
		return []string{"booking is required"}
	}
	var errs collector
	errs.check(b.CustomerID > 0, "customer_id must be > 0")
	errs.check(b.WorkerID > 0, "worker_id must be > 0")
	errs.check(b.ServiceID > 0, "service_id must be > 0")
	errs.check(!b.MinPrice.IsNegative(), "min_price must be >= 0")
	errs.check(!b.MaxPrice.IsNegative(), "max_price must be >= 0")
	// max_price == 0 means no upper bound
	if b.MaxPrice.GreaterThan(decimal.Zero) {
		errs.check(b.MinPrice.LessThanOrEqual(b.MaxPrice), "min_price must be <= max_price")
	}
	errs.check(!b.Amount.IsNegative(), "amount must be >= 0")
	errs.check(!b.StartAt.IsZero(), "start_at is required")
	if b.EndAt != nil && !b.StartAt.IsZero() {
		errs.check(!b.EndAt.Before(b.StartAt), "end_at must not be before start_at")
	}
	errs.check(b.Status.Valid(), fmt.Sprintf("status %q is not a known booking status", b.Status))
	errs.check(utf8.RuneCountInString(b.Notes) <= models.MaxBookingNotesLength,
		fmt.Sprintf("notes must be at most %d characters", models.MaxBookingNotesLength))
	return errs
}

func Review(r *models.Review) []string {
	if r == nil {
		return []string{"review is required"}
	}
	var errs collector
	errs.check(r.CustomerID > 0, "customer_id must be > 0")
	errs.check(r.WorkerID > 0, "worker_id must be > 0")
	errs.check(r.Rating >= 1 && r.Rating <= 5, "rating must be between 1 and 5")
	errs.check(!blank(r.Comment), "comment is required")
	return errs
}

func JobGig(g *models.JobGig) []string {
	if g == nil {
		return []string{"job gig is required"}
	}
	var errs collector
	errs.check(g.CustomerID > 0, "customer_id must be > 0")
	errs.check(g.ServiceID > 0, "service_id must be > 0")
	errs.check(!g.Budget.IsNegative(), "budget must be >= 0")
	errs.check(g.WorkersRequired >= 1, "workers_required must be >= 1")
	errs.check(g.DurationDays >= 1, "duration_days must be >= 1")
	return errs
}

func Bid(b *models.Bid) []string {
	if b == nil {
		return []string{"bid is required"}
	}
	var errs collector
	errs.check(b.JobGigID > 0, "job_gig_id must be > 0")
	errs.check(b.WorkerID > 0, "worker_id must be > 0")
	errs.check(!b.Amount.IsNegative(), "amount must be >= 0")
	errs.check(utf8.RuneCountInString(b.Message) <= models.MaxBidMessageLength,
		fmt.Sprintf("message must be at most %d characters", models.MaxBidMessageLength))
	return errs
}
