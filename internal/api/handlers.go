package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"demobook/internal/database"
	"demobook/internal/export"
	"demobook/internal/models"
	"demobook/internal/service"
)

func isUnauthenticated(err error) bool {
	return errors.Is(err, service.ErrUnauthenticated)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, service.ErrUnauthorized)
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrBookingNotFound)
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := s.auth.identity(r)
	counts, err := s.bookings.Dashboard(r.Context(), identity)
	if err != nil {
		s.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBookings(w, r)
	case http.MethodPost:
		s.createBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	identity := s.auth.identity(r)
	desc := r.URL.Query().Get("order") == "desc"

	bookings, err := s.bookings.List(r.Context(), identity, desc)
	if err != nil {
		s.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	identity := s.auth.identity(r)

	var fields models.BookingFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.Create(r.Context(), identity, fields)
	if err != nil {
		s.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/bookings/")
	bookingID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || bookingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	identity := s.auth.identity(r)

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.Get(r.Context(), identity, bookingID)
		if err != nil {
			s.mapError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodPut:
		var fields models.BookingFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.bookings.Update(r.Context(), identity, bookingID, fields); err != nil {
			s.mapError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		if err := s.bookings.Delete(r.Context(), identity, bookingID); err != nil {
			s.mapError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := s.auth.identity(r)
	if err := s.bookings.ClearAll(r.Context(), identity); err != nil {
		s.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *HTTPServer) handleResequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := s.auth.identity(r)
	if err := s.bookings.Resequence(r.Context(), identity); err != nil {
		s.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resequenced"})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := s.auth.identity(r)
	if !identity.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}

	bookings, err := s.bookings.List(r.Context(), identity, false)
	if err != nil {
		s.mapError(w, r, err)
		return
	}

	f, err := export.BuildWorkbook(bookings)
	if err != nil {
		s.logger.Error().Err(err).Msg("workbook build failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("workbook write failed")
	}
}
