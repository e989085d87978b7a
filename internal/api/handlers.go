package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"workmarket/internal/metrics"
	"workmarket/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func recordHTTP(endpoint string, status int) {
	metrics.IncHTTP(endpoint, strconv.Itoa(status))
}

type bookingStatusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

type gigStatusRequest struct {
	Status string `json:"status"`
}

type bidRequest struct {
	WorkerID int64           `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message"`
}

// bookingStatus normalizes case; unknown values pass through so the service
// reports them as validation failures.
func bookingStatus(raw string) models.BookingStatus {
	if st, err := models.ParseBookingStatus(raw); err == nil {
		return st
	}
	return models.BookingStatus(raw)
}

func gigStatus(raw string) models.GigStatus {
	if st, err := models.ParseGigStatus(raw); err == nil {
		return st
	}
	return models.GigStatus(raw)
}

func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	var (
		f   models.BookingFilter
		err error
	)
	if f.CustomerID, err = queryID(r, "customer_id"); err != nil {
		return f, err
	}
	if f.WorkerID, err = queryID(r, "worker_id"); err != nil {
		return f, err
	}
	if f.ServiceID, err = queryID(r, "service_id"); err != nil {
		return f, err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		f.Status = bookingStatus(raw)
	}
	return f, nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var draft models.Booking
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	draft.Status = bookingStatus(string(draft.Status))

	booking, err := s.svc.Bookings.Create(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	bookings, err := s.svc.Bookings.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	booking, err := s.svc.Bookings.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var draft models.Booking
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	draft.Status = bookingStatus(string(draft.Status))

	booking, err := s.svc.Bookings.Update(r.Context(), id, &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.svc.Bookings.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleChangeBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var req bookingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.svc.Bookings.ChangeStatus(r.Context(), id, bookingStatus(req.Status), req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookingHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	history, err := s.svc.Bookings.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": history})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	bookings, err := s.svc.Bookings.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="bookings_`+now.Format("2006-01-02")+`.xlsx"`)
	if err := s.svc.Exporter.Write(w, bookings, now); err != nil {
		s.logger.Error().Err(err).Msg("bookings export failed")
	}
}

func (s *HTTPServer) handleSaveBookingsExport(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	bookings, err := s.svc.Bookings.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	path, err := s.svc.Exporter.Save(bookings, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("bookings export save failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": path, "rows": len(bookings)})
}

func (s *HTTPServer) handleCreateGig(w http.ResponseWriter, r *http.Request) {
	var draft models.JobGig
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	gig, err := s.svc.Gigs.Create(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gig)
}

func (s *HTTPServer) handleListGigs(w http.ResponseWriter, r *http.Request) {
	var (
		f   models.GigFilter
		err error
	)
	if f.CustomerID, err = queryID(r, "customer_id"); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if f.ServiceID, err = queryID(r, "service_id"); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		f.Status = gigStatus(raw)
	}

	gigs, err := s.svc.Gigs.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gigs": gigs})
}

func (s *HTTPServer) handleGetGig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	gig, err := s.svc.Gigs.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gig)
}

func (s *HTTPServer) handleDeleteGig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.svc.Gigs.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleChangeGigStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var req gigStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	gig, err := s.svc.Gigs.ChangeStatus(r.Context(), id, gigStatus(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gig)
}

func (s *HTTPServer) handleAddBid(w http.ResponseWriter, r *http.Request) {
	gigID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var req bidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}

	view, err := s.svc.Gigs.AddBid(r.Context(), &models.Bid{
		JobGigID: gigID,
		WorkerID: req.WorkerID,
		Amount:   req.Amount,
		Message:  req.Message,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleListBids(w http.ResponseWriter, r *http.Request) {
	gigID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	bids, err := s.svc.Gigs.ListBids(r.Context(), gigID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids})
}

func (s *HTTPServer) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	gigID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	bidID, err := pathID(r, "bidID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	acc, err := s.svc.Gigs.AcceptBid(r.Context(), gigID, bidID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *HTTPServer) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	var draft models.Worker
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	worker, err := s.svc.Catalog.CreateWorker(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

func (s *HTTPServer) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	worker, err := s.svc.Catalog.GetWorker(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (s *HTTPServer) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	reviews, err := s.svc.Catalog.ListReviews(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *HTTPServer) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var draft models.Review
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	review, err := s.svc.Catalog.CreateReview(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var draft models.Service
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	svc, err := s.svc.Catalog.CreateService(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (s *HTTPServer) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	svc, err := s.svc.Catalog.GetService(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
