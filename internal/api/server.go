package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"demobook/internal/config"
	"demobook/internal/metrics"
	"demobook/internal/models"
	"demobook/internal/service"
	"demobook/internal/session"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking request surface. It stands in for the
// presentation layer: handlers speak JSON and carry the session cookie.
type HTTPServer struct {
	cfg      config.Config
	bookings *service.BookingService
	sessions session.Repository
	users    map[string]models.Credential
	logger   *zerolog.Logger
	server   *http.Server
	auth     *sessionAuth
}

func NewHTTPServer(
	cfg config.Config,
	bookings *service.BookingService,
	sessions session.Repository,
	users map[string]models.Credential,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
	srv.auth = newSessionAuth(cfg.Auth, sessions, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/login", srv.handleLogin)
	mux.HandleFunc("/logout", srv.handleLogout)
	mux.HandleFunc("/dashboard", srv.handleDashboard)
	mux.HandleFunc("/bookings", srv.handleBookings)
	mux.HandleFunc("/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/admin/clear", srv.handleClearAll)
	mux.HandleFunc("/admin/resequence", srv.handleResequence)
	mux.HandleFunc("/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler. Test hook.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// mapError translates service errors into the fixed response taxonomy:
// missing session redirects to the login entry point, everything else is
// a fixed status response.
func (s *HTTPServer) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isUnauthenticated(err):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case isUnauthorized(err):
		writeError(w, http.StatusForbidden, "unauthorized")
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "booking not found")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("storage failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
