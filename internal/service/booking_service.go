package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/events"
	"workmarket/internal/lifecycle"
	"workmarket/internal/metrics"
	"workmarket/internal/models"
	"workmarket/internal/validation"
)

// BookingService owns every write to a booking. Status only changes through
// the booking transition table, whether via ChangeStatus or Update.
type BookingService struct {
	repo     domain.BookingRepository
	history  domain.TransitionLogRepository
	eventBus domain.EventPublisher
	now      clock
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.BookingRepository, history domain.TransitionLogRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	l := logger.With().Str("component", "booking_service").Logger()
	return &BookingService{
		repo:     repo,
		history:  history,
		eventBus: eventBus,
		now:      utcNow,
		logger:   &l,
	}
}

// Create validates the draft and stores it. An empty status defaults to
// Pending; any other known status is taken as given.
func (s *BookingService) Create(ctx context.Context, draft *models.Booking) (*models.Booking, error) {
	if draft == nil {
		return nil, rejectDraft(models.EntityBooking, validation.Booking(nil))
	}
	booking := draft.Clone()
	if booking.Status == "" {
		booking.Status = models.BookingPending
	}
	if err := rejectDraft(models.EntityBooking, validation.Booking(booking)); err != nil {
		s.logger.Debug().Err(err).Msg("Booking draft rejected")
		return nil, err
	}

	now := s.now()
	booking.ID = 0
	booking.StartAt = booking.StartAt.UTC()
	if booking.EndAt != nil {
		end := booking.EndAt.UTC()
		booking.EndAt = &end
	}
	booking.CreatedAt = now
	booking.ModifiedAt = now

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create booking")
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("customer_id", booking.CustomerID).
		Int64("worker_id", booking.WorkerID).
		Str("status", string(booking.Status)).
		Msg("Booking created")
	publish(s.eventBus, s.logger, events.EventBookingCreated, bookingPayload(booking, now))
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError([]string{fmt.Sprintf("status %q is not a known booking status", filter.Status)})
	}
	return s.repo.ListBookings(ctx, filter)
}

// Update replaces all mutable fields of booking id with the draft. The draft id
// must equal id. A non-zero draft version must match the stored one.
func (s *BookingService) Update(ctx context.Context, id int64, draft *models.Booking) (*models.Booking, error) {
	if draft == nil {
		return nil, rejectDraft(models.EntityBooking, validation.Booking(nil))
	}
	var errs []string
	if draft.ID != id {
		errs = append(errs, fmt.Sprintf("id %d does not match booking id %d", draft.ID, id))
	}
	errs = append(errs, validation.Booking(draft)...)
	if err := rejectDraft(models.EntityBooking, errs); err != nil {
		return nil, err
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.Version != 0 && draft.Version != current.Version {
		return nil, domain.Conflictf("booking %d is at version %d, not %d", id, current.Version, draft.Version)
	}

	now := s.now()
	updated := draft.Clone()
	updated.StartAt = updated.StartAt.UTC()
	if updated.EndAt != nil {
		end := updated.EndAt.UTC()
		updated.EndAt = &end
	}
	updated.CreatedAt = current.CreatedAt
	updated.ModifiedAt = now
	updated.Status = current.Status

	from := current.Status
	if draft.Status != current.Status {
		if err := lifecycle.ApplyBookingStatus(updated, draft.Status, now); err != nil {
			metrics.ObserveTransition(models.EntityBooking, string(from), string(draft.Status), "rejected")
			return nil, err
		}
	}

	if err := s.repo.UpdateBookingWithVersion(ctx, updated, current.Version); err != nil {
		if errors.Is(err, domain.ErrConflict) && from != updated.Status {
			metrics.ObserveTransition(models.EntityBooking, string(from), string(updated.Status), "conflict")
		}
		return nil, err
	}

	s.logger.Info().Int64("booking_id", id).Int64("version", updated.Version).Msg("Booking updated")
	publish(s.eventBus, s.logger, events.EventBookingUpdated, bookingPayload(updated, now))
	if from != updated.Status {
		s.transitioned(updated, from, now)
	}
	return updated, nil
}

// ChangeStatus moves the booking along the transition table. expectedVersion
// of 0 skips the caller-side version check; the stored version is still
// compared on write.
func (s *BookingService) ChangeStatus(ctx context.Context, id int64, status models.BookingStatus, expectedVersion int64) (*models.Booking, error) {
	if !status.Valid() {
		return nil, rejectDraft(models.EntityBooking, []string{fmt.Sprintf("status %q is not a known booking status", status)})
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != booking.Version {
		return nil, domain.Conflictf("booking %d is at version %d, not %d", id, booking.Version, expectedVersion)
	}

	from := booking.Status
	fromVersion := booking.Version
	now := s.now()
	if err := lifecycle.ApplyBookingStatus(booking, status, now); err != nil {
		metrics.ObserveTransition(models.EntityBooking, string(from), string(status), "rejected")
		s.logger.Warn().Int64("booking_id", id).Str("from", string(from)).Str("to", string(status)).Msg("Illegal booking transition")
		return nil, err
	}

	if err := s.repo.UpdateBookingWithVersion(ctx, booking, fromVersion); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveTransition(models.EntityBooking, string(from), string(status), "conflict")
			s.logger.Warn().Int64("booking_id", id).Msg("Booking changed concurrently")
		}
		return nil, err
	}

	s.transitioned(booking, from, now)
	return booking, nil
}

func (s *BookingService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("booking_id", id).Msg("Booking deleted")
	publish(s.eventBus, s.logger, events.EventBookingDeleted, events.BookingEventPayload{BookingID: id, At: s.now()})
	return nil
}

// History returns the recorded status transitions of a booking, oldest first.
func (s *BookingService) History(ctx context.Context, id int64) ([]*models.StatusTransition, error) {
	if _, err := s.repo.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListTransitions(ctx, models.EntityBooking, id)
}

func (s *BookingService) transitioned(b *models.Booking, from models.BookingStatus, at time.Time) {
	metrics.ObserveTransition(models.EntityBooking, string(from), string(b.Status), "ok")
	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("from", string(from)).
		Str("to", string(b.Status)).
		Int64("version", b.Version).
		Msg("Booking status changed")
	publish(s.eventBus, s.logger, events.EventBookingStatusChanged,
		statusChanged(models.EntityBooking, b.ID, string(from), string(b.Status), at))
}

func bookingPayload(b *models.Booking, at time.Time) events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		WorkerID:   b.WorkerID,
		ServiceID:  b.ServiceID,
		Status:     string(b.Status),
		Version:    b.Version,
		At:         at,
	}
}
