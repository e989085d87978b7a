package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"workmarket/internal/models"
)

func sampleBookings() []*models.Booking {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	return []*models.Booking{
		{ID: 1, CustomerID: 10, WorkerID: 20, ServiceID: 30, Status: models.BookingPending,
			StartAt: start, Amount: decimal.RequireFromString("99.90"), Version: 1, ModifiedAt: start},
		{ID: 2, CustomerID: 11, WorkerID: 21, ServiceID: 30, Status: models.BookingCompleted,
			StartAt: start, EndAt: &end, Amount: decimal.NewFromInt(150), Version: 4, Notes: "ключ у соседей", ModifiedAt: end},
	}
}

func TestBookingExporter_Write(t *testing.T) {
	logger := zerolog.Nop()
	e := NewBookingExporter(t.TempDir(), &logger)

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, sampleBookings(), time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Generated 2026-06-02T00:00:00Z", rows[0][0])
	assert.Equal(t, bookingHeaders, rows[1])
	assert.Equal(t, "Pending", rows[2][4])
	assert.Equal(t, "99.9", rows[2][9])
	assert.Equal(t, "2026-06-01T12:00:00Z", rows[3][6])
	assert.Equal(t, "ключ у соседей", rows[3][11])
}

func TestBookingExporter_Save(t *testing.T) {
	logger := zerolog.Nop()
	dir := filepath.Join(t.TempDir(), "exports")
	e := NewBookingExporter(dir, &logger)

	path, err := e.Save(nil, time.Date(2026, 6, 2, 15, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_export_2026-06-02_15-04-05.xlsx"), path)
	assert.FileExists(t, path)
}
