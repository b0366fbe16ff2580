package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"demobook/internal/config"
	"demobook/internal/models"
	"demobook/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const sessionCookie = "session_id"

// sessionAuth resolves the per-request identity from the session cookie
// and rate-limits login attempts per client address.
type sessionAuth struct {
	cfg      config.AuthConfig
	sessions session.Repository
	logger   *zerolog.Logger
	limiters sync.Map // map[string]*rate.Limiter
}

func newSessionAuth(cfg config.AuthConfig, sessions session.Repository, logger *zerolog.Logger) *sessionAuth {
	return &sessionAuth{cfg: cfg, sessions: sessions, logger: logger}
}

// identity resolves the caller's session. An empty Identity means no
// active session.
func (a *sessionAuth) identity(r *http.Request) models.Identity {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return models.Identity{}
	}

	id, ok := a.verifyValue(cookie.Value)
	if !ok {
		return models.Identity{}
	}

	sess, err := a.sessions.Get(r.Context(), id)
	if err != nil {
		a.logger.Error().Err(err).Msg("session lookup failed")
		return models.Identity{}
	}
	if sess == nil {
		return models.Identity{}
	}

	return models.Identity{Username: sess.Username, Role: sess.Role}
}

// signValue appends an HMAC tag to the session id when a session secret
// is configured; without a secret the id rides the cookie bare.
func (a *sessionAuth) signValue(id string) string {
	if a.cfg.SessionSecret == "" {
		return id
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.SessionSecret))
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *sessionAuth) verifyValue(value string) (string, bool) {
	if a.cfg.SessionSecret == "" {
		return value, value != ""
	}
	id, tag, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.SessionSecret))
	mac.Write([]byte(id))
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(tag), []byte(expected)) != 1 {
		return "", false
	}
	return id, true
}

func (a *sessionAuth) allowLogin(r *http.Request) bool {
	if a.cfg.LoginRPS <= 0 {
		return true
	}

	key := clientKey(r)
	lim := a.getLimiter(key)
	return lim.Allow()
}

func (a *sessionAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.LoginRPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Redirect target for unauthenticated callers.
		writeJSON(w, http.StatusOK, map[string]string{"message": "login required"})
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.auth.allowLogin(r) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)

	cred, ok := s.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) != 1 {
		s.logger.Warn().Str("username", username).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess := session.New(cred.Username, cred.Role)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.logger.Error().Err(err).Msg("session store failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.auth.signValue(sess.ID),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   s.cfg.Auth.SessionTTLMinutes * 60,
	})

	s.logger.Info().Str("username", cred.Username).Str("role", cred.Role).Msg("login")
	writeJSON(w, http.StatusOK, models.Identity{Username: cred.Username, Role: cred.Role})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, ok := s.auth.verifyValue(cookie.Value); ok {
			if err := s.sessions.Clear(r.Context(), id); err != nil {
				s.logger.Error().Err(err).Msg("session clear failed")
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
