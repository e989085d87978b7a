package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type JobGig struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	ServiceID       int64           `json:"service_id"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Budget          decimal.Decimal `json:"budget"`
	WorkersRequired int             `json:"workers_required"`
	DurationDays    int             `json:"duration_days"`
	Status          GigStatus       `json:"status"`
	AcceptedBidID   *int64          `json:"accepted_bid_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Bids            []*Bid          `json:"bids,omitempty"`
}

type GigFilter struct {
	CustomerID int64
	ServiceID  int64
	Status     GigStatus
}

type Bid struct {
	ID         int64           `json:"id"`
	JobGigID   int64           `json:"job_gig_id"`
	WorkerID   int64           `json:"worker_id"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message,omitempty"`
	IsAccepted bool            `json:"is_accepted"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BidView is a bid enriched with the proposer's display data.
type BidView struct {
	*Bid
	WorkerName   string  `json:"worker_name"`
	WorkerRating float64 `json:"worker_rating"`
}

// BidAcceptance describes a committed accept-bid operation.
type BidAcceptance struct {
	Bid            *Bid      `json:"bid"`
	GigID          int64     `json:"job_gig_id"`
	PreviousStatus GigStatus `json:"previous_status"`
	AcceptedAt     time.Time `json:"accepted_at"`
}
