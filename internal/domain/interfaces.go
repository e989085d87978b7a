package domain

import (
	"context"
	"time"

	"workmarket/internal/models"
)

type BookingRepository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingWithVersion(ctx context.Context, booking *models.Booking, fromVersion int64) error
	DeleteBooking(ctx context.Context, id int64) error
}

type GigRepository interface {
	GetJobGig(ctx context.Context, id int64) (*models.JobGig, error)
	ListJobGigs(ctx context.Context, filter models.GigFilter) ([]*models.JobGig, error)
	CreateJobGig(ctx context.Context, gig *models.JobGig) error
	UpdateJobGigStatus(ctx context.Context, id int64, from, to models.GigStatus) error
	DeleteJobGig(ctx context.Context, id int64) error
}

// AcceptCheck runs inside the accept transaction against the locked gig row.
type AcceptCheck func(gig *models.JobGig) error

type BidRepository interface {
	// CreateBid inserts the bid. With statuses given, the insert only happens
	// while the gig is in one of them; otherwise it fails with ErrConflict.
	CreateBid(ctx context.Context, bid *models.Bid, statuses ...models.GigStatus) error
	GetBid(ctx context.Context, id int64) (*models.Bid, error)
	ListBids(ctx context.Context, gigID int64) ([]*models.Bid, error)
	AcceptBid(ctx context.Context, gigID, bidID int64, check AcceptCheck) (*models.Bid, error)
}

type CatalogRepository interface {
	CreateWorker(ctx context.Context, worker *models.Worker) error
	GetWorker(ctx context.Context, id int64) (*models.Worker, error)
	CreateService(ctx context.Context, service *models.Service) error
	GetService(ctx context.Context, id int64) (*models.Service, error)
	CreateReview(ctx context.Context, review *models.Review) error
	ListReviewsByWorker(ctx context.Context, workerID int64) ([]*models.Review, error)
}

type TransitionLogRepository interface {
	AppendTransition(ctx context.Context, transition *models.StatusTransition) error
	ListTransitions(ctx context.Context, entity string, entityID int64) ([]*models.StatusTransition, error)
}

// CoordinationStore provides short-lived locks and counters shared between instances.
type CoordinationStore interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	Create(ctx context.Context, draft *models.Booking) (*models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	Update(ctx context.Context, id int64, draft *models.Booking) (*models.Booking, error)
	ChangeStatus(ctx context.Context, id int64, status models.BookingStatus, expectedVersion int64) (*models.Booking, error)
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context, id int64) ([]*models.StatusTransition, error)
}

type GigService interface {
	Create(ctx context.Context, draft *models.JobGig) (*models.JobGig, error)
	Get(ctx context.Context, id int64) (*models.JobGig, error)
	List(ctx context.Context, filter models.GigFilter) ([]*models.JobGig, error)
	ChangeStatus(ctx context.Context, id int64, status models.GigStatus) (*models.JobGig, error)
	AddBid(ctx context.Context, bid *models.Bid) (*models.BidView, error)
	ListBids(ctx context.Context, gigID int64) ([]*models.Bid, error)
	AcceptBid(ctx context.Context, gigID, bidID int64) (*models.BidAcceptance, error)
	Delete(ctx context.Context, id int64) error
}

type CatalogService interface {
	CreateWorker(ctx context.Context, worker *models.Worker) (*models.Worker, error)
	GetWorker(ctx context.Context, id int64) (*models.Worker, error)
	CreateService(ctx context.Context, service *models.Service) (*models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	ListReviews(ctx context.Context, workerID int64) ([]*models.Review, error)
}
