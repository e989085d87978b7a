package models

import (
	"fmt"
	"strings"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "Pending"
	BookingConfirmed  BookingStatus = "Confirmed"
	BookingInProgress BookingStatus = "InProgress"
	BookingCompleted  BookingStatus = "Completed"
	BookingCancelled  BookingStatus = "Cancelled"
	BookingDeclined   BookingStatus = "Declined"
)

// BookingStatuses lists every booking status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingPending,
	BookingConfirmed,
	BookingInProgress,
	BookingCompleted,
	BookingCancelled,
	BookingDeclined,
}

func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseBookingStatus matches case-insensitively, so "inprogress" and "InProgress" are equal.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, known := range BookingStatuses {
		if strings.EqualFold(raw, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown booking status: %q", raw)
}

type GigStatus string

const (
	GigOpen       GigStatus = "Open"
	GigInProgress GigStatus = "InProgress"
	GigCompleted  GigStatus = "Completed"
	GigClosed     GigStatus = "Closed"
)

var GigStatuses = []GigStatus{GigOpen, GigInProgress, GigCompleted, GigClosed}

func (s GigStatus) Valid() bool {
	for _, known := range GigStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func ParseGigStatus(raw string) (GigStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, known := range GigStatuses {
		if strings.EqualFold(raw, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown gig status: %q", raw)
}

const (
	EntityBooking = "booking"
	EntityJobGig  = "job_gig"
)

const (
	// MaxBookingNotesLength ограничивает длину заметок к заявке
	MaxBookingNotesLength = 1000

	// MaxBidMessageLength ограничивает длину сообщения в отклике
	MaxBidMessageLength = 2000

	// AuditQueueSize размер очереди журнала переходов
	AuditQueueSize = 256

	// DefaultBidRateLimit количество откликов одного исполнителя в окне
	DefaultBidRateLimit = 30

	// DefaultBidRateWindow окно ограничения откликов в секундах
	DefaultBidRateWindow = 60

	// DefaultAcceptLockTTL время жизни блокировки принятия отклика в миллисекундах
	DefaultAcceptLockTTL = 5000
)
