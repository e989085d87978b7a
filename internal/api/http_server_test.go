package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"workmarket/internal/config"
	"workmarket/internal/database"
	"workmarket/internal/export"
	"workmarket/internal/models"
	"workmarket/internal/repository"
	"workmarket/internal/service"
)

type testStack struct {
	db       *database.DB
	bookings *service.BookingService
	gigs     *service.GigService
	catalog  *service.CatalogService
	services Services
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := service.NewBidLedger(db, db, repository.NewMemoryCoordinationStore(), service.LedgerPolicy{
		StrictTransitions: true,
		LockTTL:           time.Second,
		LockWait:          time.Second,
	}, &logger)

	st := &testStack{
		db:       db,
		bookings: service.NewBookingService(db, db, nil, &logger),
		gigs:     service.NewGigService(db, db, ledger, nil, &logger),
		catalog:  service.NewCatalogService(db, &logger),
	}
	st.services = Services{
		Bookings: st.bookings,
		Gigs:     st.gigs,
		Catalog:  st.catalog,
		Exporter: export.NewBookingExporter(filepath.Join(t.TempDir(), "exports"), &logger),
		Health:   db.PingContext,
	}
	return st
}

func newTestHTTPServer(st *testStack, cfg config.APIConfig) *HTTPServer {
	logger := zerolog.New(io.Discard)
	return NewHTTPServer(&cfg, st.services, &logger)
}

func openAPIConfig() config.APIConfig {
	return config.APIConfig{HTTP: config.APIHTTPConfig{Enabled: true}}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func seedWorker(t *testing.T, st *testStack, first string) *models.Worker {
	t.Helper()
	w, err := st.catalog.CreateWorker(context.Background(), &models.Worker{
		FirstName: first,
		LastName:  "Orlova",
		Email:     "worker@example.com",
		Phone:     "+70000000000",
		Rating:    4.8,
		Address:   &models.Address{Street: "Main 5", City: "Perm", PostalCode: "614000"},
	})
	if err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	return w
}

func bookingBody() map[string]any {
	return map[string]any{
		"customer_id": 1,
		"worker_id":   2,
		"service_id":  3,
		"min_price":   "50",
		"max_price":   "100",
		"amount":      "75.50",
		"start_at":    "2026-07-01T10:00:00+03:00",
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()

	w := doRequest(t, h, http.MethodPost, "/api/v1/bookings", bookingBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: unexpected status %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody[models.Booking](t, w)
	assert.Equal(t, models.BookingPending, created.Status)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, time.Date(2026, 7, 1, 7, 0, 0, 0, time.UTC), created.StartAt)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("75.5")))

	statusPath := fmt.Sprintf("/api/v1/bookings/%d/status", created.ID)

	w = doRequest(t, h, http.MethodPost, statusPath, map[string]any{"status": "confirmed", "version": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: unexpected status %d: %s", w.Code, w.Body.String())
	}
	confirmed := decodeBody[models.Booking](t, w)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.Equal(t, int64(2), confirmed.Version)

	w = doRequest(t, h, http.MethodPost, statusPath, map[string]any{"status": "Pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeBody[errorEnvelope](t, w)
	assert.Equal(t, codeIllegalTransition, env.Error.Code)
	assert.Equal(t, []string{"InProgress", "Cancelled"}, env.Error.Allowed)
	assert.Equal(t, []string{"illegal booking status transition from Confirmed to Pending (allowed: InProgress, Cancelled)"}, env.Error.Details)

	w = doRequest(t, h, http.MethodPost, statusPath, map[string]any{"status": "InProgress", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, h, http.MethodPost, statusPath, map[string]any{"status": "Paused"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env = decodeBody[errorEnvelope](t, w)
	assert.Equal(t, codeValidation, env.Error.Code)

	w = doRequest(t, h, http.MethodGet, "/api/v1/bookings?status=Confirmed&customer_id=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, w)
	assert.Len(t, list.Bookings, 1)

	w = doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d/history", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodDelete, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBookingValidationEnvelope(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()

	body := bookingBody()
	body["customer_id"] = 0
	body["min_price"] = "500"
	w := doRequest(t, h, http.MethodPost, "/api/v1/bookings", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", w.Code)
	}
	env := decodeBody[errorEnvelope](t, w)
	assert.Equal(t, codeValidation, env.Error.Code)
	assert.Equal(t, []string{"customer_id must be > 0", "min_price must be <= max_price"}, env.Error.Details)

	w = doRequest(t, h, http.MethodPost, "/api/v1/bookings", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/v1/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGigBiddingOverHTTP(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()
	anna := seedWorker(t, st, "Anna")
	boris := seedWorker(t, st, "Boris")

	w := doRequest(t, h, http.MethodPost, "/api/v1/gigs", map[string]any{
		"customer_id": 1, "service_id": 1, "title": "Move piano",
		"budget": "400", "workers_required": 2, "duration_days": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create gig: unexpected status %d: %s", w.Code, w.Body.String())
	}
	gig := decodeBody[models.JobGig](t, w)
	assert.Equal(t, models.GigOpen, gig.Status)

	bidPath := fmt.Sprintf("/api/v1/gigs/%d/bids", gig.ID)
	w = doRequest(t, h, http.MethodPost, bidPath, map[string]any{"worker_id": anna.ID, "amount": "380", "message": "two of us"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add bid: unexpected status %d: %s", w.Code, w.Body.String())
	}
	view := decodeBody[struct {
		ID         int64  `json:"id"`
		WorkerName string `json:"worker_name"`
	}](t, w)
	assert.Equal(t, "Anna Orlova", view.WorkerName)

	w = doRequest(t, h, http.MethodPost, bidPath, map[string]any{"worker_id": boris.ID, "amount": "350"})
	assert.Equal(t, http.StatusCreated, w.Code)
	second := decodeBody[struct {
		ID int64 `json:"id"`
	}](t, w)

	w = doRequest(t, h, http.MethodPost, fmt.Sprintf("%s/%d/accept", bidPath, view.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: unexpected status %d: %s", w.Code, w.Body.String())
	}
	acc := decodeBody[models.BidAcceptance](t, w)
	assert.Equal(t, models.GigOpen, acc.PreviousStatus)
	assert.True(t, acc.Bid.IsAccepted)

	w = doRequest(t, h, http.MethodPost, fmt.Sprintf("%s/%d/accept", bidPath, second.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, h, http.MethodPost, bidPath, map[string]any{"worker_id": boris.ID, "amount": "300"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/v1/gigs/%d", gig.ID), nil)
	got := decodeBody[models.JobGig](t, w)
	assert.Equal(t, models.GigInProgress, got.Status)
	assert.Len(t, got.Bids, 2)

	w = doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%d/status", gig.ID), map[string]any{"status": "open"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%d/status", gig.ID), map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAcceptBidFromAnotherGigIsNotFound(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()
	worker := seedWorker(t, st, "Vera")
	ctx := context.Background()

	gigA, err := st.gigs.Create(ctx, &models.JobGig{CustomerID: 1, ServiceID: 1, WorkersRequired: 1, DurationDays: 1})
	require.NoError(t, err)
	gigB, err := st.gigs.Create(ctx, &models.JobGig{CustomerID: 1, ServiceID: 1, WorkersRequired: 1, DurationDays: 1})
	require.NoError(t, err)
	bid, err := st.gigs.AddBid(ctx, &models.Bid{JobGigID: gigB.ID, WorkerID: worker.ID, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	w := doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%d/bids/%d/accept", gigA.ID, bid.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogOverHTTP(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()

	w := doRequest(t, h, http.MethodPost, "/api/v1/services", map[string]any{"name": "Cleaning", "fee": "12.5"})
	assert.Equal(t, http.StatusCreated, w.Code)

	worker := seedWorker(t, st, "Gleb")
	w = doRequest(t, h, http.MethodPost, "/api/v1/reviews", map[string]any{
		"customer_id": 4, "worker_id": worker.ID, "rating": 4, "comment": "на совесть",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/v1/workers/%d/reviews", worker.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	reviews := decodeBody[struct {
		Reviews []models.Review `json:"reviews"`
	}](t, w)
	assert.Len(t, reviews.Reviews, 1)

	w = doRequest(t, h, http.MethodGet, "/api/v1/workers/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportBookings(t *testing.T) {
	st := newTestStack(t)
	h := newTestHTTPServer(st, openAPIConfig()).Handler()

	w := doRequest(t, h, http.MethodPost, "/api/v1/bookings", bookingBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/v1/bookings/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: unexpected status %d", w.Code)
	}
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = doRequest(t, h, http.MethodPost, "/api/v1/bookings/export", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	saved := decodeBody[struct {
		Path string `json:"path"`
		Rows int    `json:"rows"`
	}](t, w)
	assert.Equal(t, 1, saved.Rows)
	_, err = os.Stat(saved.Path)
	assert.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	st := newTestStack(t)
	s := newTestHTTPServer(st, openAPIConfig())

	w := doRequest(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	st.services.Health = func(context.Context) error { return fmt.Errorf("db gone") }
	s = newTestHTTPServer(st, openAPIConfig())
	w = doRequest(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	st := newTestStack(t)
	cfg := openAPIConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	h := newTestHTTPServer(st, cfg).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_StartShutdown(t *testing.T) {
	st := newTestStack(t)
	s := newTestHTTPServer(st, openAPIConfig())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
