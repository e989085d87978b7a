// Package export builds XLSX reports from booking data.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"workmarket/internal/models"
)

const bookingsSheet = "Bookings"

var bookingHeaders = []string{
	"ID", "Customer", "Worker", "Service", "Status", "Start", "End",
	"Min price", "Max price", "Amount", "Version", "Notes", "Modified",
}

// заливка по статусу, как в отчёте по заявкам
var statusFill = map[models.BookingStatus]string{
	models.BookingPending:    "#FFEB9C",
	models.BookingConfirmed:  "#C6EFCE",
	models.BookingInProgress: "#C6EFCE",
	models.BookingCompleted:  "#DDEBF7",
	models.BookingCancelled:  "#FFC7CE",
	models.BookingDeclined:   "#FFC7CE",
}

type BookingExporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewBookingExporter(dir string, logger *zerolog.Logger) *BookingExporter {
	return &BookingExporter{dir: dir, logger: logger}
}

// Write renders the bookings as a single-sheet workbook into w.
func (e *BookingExporter) Write(w io.Writer, bookings []*models.Booking, generatedAt time.Time) error {
	f, err := e.build(bookings, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save stores the workbook under the export directory and returns its path.
func (e *BookingExporter) Save(bookings []*models.Booking, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(bookings, generatedAt)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", generatedAt.UTC().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(bookings)).Msg("Bookings Excel file created")
	return filePath, nil
}

func (e *BookingExporter) build(bookings []*models.Booking, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(bookingsSheet, "A1", "Generated "+generatedAt.UTC().Format(time.RFC3339))
	lastCol, _ := excelize.ColumnNumberToName(len(bookingHeaders))
	_ = f.MergeCell(bookingsSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(bookingsSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	styles := make(map[models.BookingStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			styles[status] = id
		}
	}

	for i, b := range bookings {
		row := i + 3
		end := ""
		if b.EndAt != nil {
			end = b.EndAt.UTC().Format(time.RFC3339)
		}
		values := []interface{}{
			b.ID, b.CustomerID, b.WorkerID, b.ServiceID, string(b.Status),
			b.StartAt.UTC().Format(time.RFC3339), end,
			b.MinPrice.String(), b.MaxPrice.String(), b.Amount.String(),
			b.Version, b.Notes, b.ModifiedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(5, row)
			_ = f.SetCellStyle(bookingsSheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "E", 12)
	_ = f.SetColWidth(bookingsSheet, "F", "G", 22)
	_ = f.SetColWidth(bookingsSheet, "H", "K", 12)
	_ = f.SetColWidth(bookingsSheet, "L", "L", 40)
	_ = f.SetColWidth(bookingsSheet, "M", "M", 22)
	return f, nil
}
