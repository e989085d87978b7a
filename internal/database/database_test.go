package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmarket/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

var testNow = time.Date(2026, 4, 10, 8, 30, 0, 0, time.UTC)

func newTestGig() *models.JobGig {
	return &models.JobGig{
		CustomerID:      1,
		ServiceID:       2,
		Title:           "Fix the roof",
		Budget:          decimal.RequireFromString("1500.50"),
		WorkersRequired: 2,
		DurationDays:    3,
		Status:          models.GigOpen,
		CreatedAt:       testNow,
	}
}

func newTestBooking() *models.Booking {
	return &models.Booking{
		CustomerID: 10,
		WorkerID:   20,
		ServiceID:  30,
		MinPrice:   decimal.NewFromInt(100),
		MaxPrice:   decimal.NewFromInt(200),
		StartAt:    testNow.Add(24 * time.Hour),
		Status:     models.BookingPending,
		Amount:     decimal.RequireFromString("150.25"),
		Notes:      "bring ladder",
		CreatedAt:  testNow,
		ModifiedAt: testNow,
	}
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestNewDB_ReopenKeepsSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.CreateJobGig(context.Background(), newTestGig()))
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	gigs, err := db.ListJobGigs(context.Background(), models.GigFilter{})
	require.NoError(t, err)
	assert.Len(t, gigs, 1)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, db.PingContext(context.Background()))
}

func TestForeignKeysEnabled(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	var on int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)
}
