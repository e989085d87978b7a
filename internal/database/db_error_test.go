package database

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmarket/internal/domain"
	"workmarket/internal/models"
)

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close() // закрытая база: каждый вызов должен вернуть ошибку

	ctx := context.Background()

	t.Run("CreateBooking_Error", func(t *testing.T) {
		assert.Error(t, db.CreateBooking(ctx, newTestBooking()))
	})

	t.Run("GetBooking_Error", func(t *testing.T) {
		_, err := db.GetBooking(ctx, 1)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListBookings_Error", func(t *testing.T) {
		_, err := db.ListBookings(ctx, models.BookingFilter{})
		assert.Error(t, err)
	})

	t.Run("UpdateBookingWithVersion_Error", func(t *testing.T) {
		assert.Error(t, db.UpdateBookingWithVersion(ctx, newTestBooking(), 1))
	})

	t.Run("ListJobGigs_Error", func(t *testing.T) {
		_, err := db.ListJobGigs(ctx, models.GigFilter{})
		assert.Error(t, err)
	})

	t.Run("AcceptBid_Error", func(t *testing.T) {
		_, err := db.AcceptBid(ctx, 1, 1, nil)
		assert.Error(t, err)
	})

	t.Run("AppendTransition_Error", func(t *testing.T) {
		assert.Error(t, db.AppendTransition(ctx, &models.StatusTransition{}))
	})

	t.Run("ListReviews_Error", func(t *testing.T) {
		_, err := db.ListReviewsByWorker(ctx, 1)
		assert.Error(t, err)
	})
}
