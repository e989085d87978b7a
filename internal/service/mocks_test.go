package service

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"workmarket/internal/models"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockBookingRepo) UpdateBookingWithVersion(ctx context.Context, b *models.Booking, from int64) error {
	return m.Called(ctx, b, from).Error(0)
}
func (m *mockBookingRepo) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) AppendTransition(ctx context.Context, t *models.StatusTransition) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockHistory) ListTransitions(ctx context.Context, entity string, id int64) ([]*models.StatusTransition, error) {
	args := m.Called(ctx, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StatusTransition), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}
