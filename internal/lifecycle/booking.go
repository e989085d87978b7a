package lifecycle

import (
	"time"

	"workmarket/internal/domain"
	"workmarket/internal/models"
)

var bookingTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:    {models.BookingConfirmed, models.BookingDeclined, models.BookingCancelled},
	models.BookingConfirmed:  {models.BookingInProgress, models.BookingCancelled},
	models.BookingInProgress: {models.BookingCompleted, models.BookingCancelled},
	models.BookingCompleted:  {},
	models.BookingCancelled:  {},
	models.BookingDeclined:   {},
}

// CanTransitionBooking reports whether from -> to is in the booking table.
// Self-transitions and moves out of terminal states are always rejected.
func CanTransitionBooking(from, to models.BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func NextBookingStatuses(from models.BookingStatus) []models.BookingStatus {
	next := bookingTransitions[from]
	out := make([]models.BookingStatus, len(next))
	copy(out, next)
	return out
}

func IsTerminalBooking(status models.BookingStatus) bool {
	next, known := bookingTransitions[status]
	return known && len(next) == 0
}

func ValidateBookingTransition(from, to models.BookingStatus) error {
	if CanTransitionBooking(from, to) {
		return nil
	}
	terr := &domain.TransitionError{
		Entity:   models.EntityBooking,
		From:     string(from),
		To:       string(to),
		Terminal: IsTerminalBooking(from),
	}
	for _, next := range NextBookingStatuses(from) {
		terr.Allowed = append(terr.Allowed, string(next))
	}
	return terr
}

// ApplyBookingStatus moves b to the target status. b is left untouched when
// the transition is rejected.
func ApplyBookingStatus(b *models.Booking, to models.BookingStatus, now time.Time) error {
	if err := ValidateBookingTransition(b.Status, to); err != nil {
		return err
	}
	now = now.UTC()
	b.Status = to
	b.ModifiedAt = now
	if to == models.BookingCompleted && b.EndAt == nil {
		end := now
		b.EndAt = &end
	}
	return nil
}
