package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	WorkerID   int64           `json:"worker_id"`
	ServiceID  int64           `json:"service_id"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"` // zero means no upper bound
	StartAt    time.Time       `json:"start_at"`
	EndAt      *time.Time      `json:"end_at,omitempty"`
	Status     BookingStatus   `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ModifiedAt time.Time       `json:"modified_at"`
	Version    int64           `json:"version"`
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	if b.EndAt != nil {
		end := *b.EndAt
		cp.EndAt = &end
	}
	return &cp
}

// BookingFilter selects bookings by reference; zero fields are ignored.
type BookingFilter struct {
	CustomerID int64
	WorkerID   int64
	ServiceID  int64
	Status     BookingStatus
}
