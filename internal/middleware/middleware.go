// Package middleware provides HTTP middleware for the portfolio tracker.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"portfolio_tracker/internal/logger"
)

// AdminTokenHeader carries the admin token. A Bearer Authorization header works too.
const AdminTokenHeader = "X-Admin-Token"

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	log = logger.Component(log, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := log.Info()
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("ip", getIP(r)).
				Msg("Request")
		})
	}
}

// AdminGuard protects destructive endpoints with a bcrypt-hashed token.
type AdminGuard struct {
	hash []byte
}

// NewAdminGuard creates an AdminGuard. An empty hash disables admin endpoints.
func NewAdminGuard(tokenHash string) *AdminGuard {
	return &AdminGuard{hash: []byte(tokenHash)}
}

// HashToken returns the bcrypt hash to configure for a token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RequireAdmin is middleware that requires a valid admin token.
// Returns 403 Forbidden when no token is configured.
func (g *AdminGuard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(g.hash) == 0 {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}

		token := r.Header.Get(AdminTokenHeader)
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" || bcrypt.CompareHashAndPassword(g.hash, []byte(token)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
