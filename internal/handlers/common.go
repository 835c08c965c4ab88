// Package handlers provides the HTTP API of the portfolio tracker.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/repository"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// responder writes JSON responses and maps application errors to status codes.
type responder struct {
	log zerolog.Logger
}

func (h responder) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Error encoding JSON")
	}
}

func (h responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	body := errorResponse{Error: apperrors.Message(err)}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Details = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	h.writeJSON(w, status, body)
}

func clientIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "clientID"))
}

// dateQuery parses an optional date query parameter. ISO dates and
// spreadsheet serials are both accepted.
func dateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := repository.NormalizeDate(raw)
	if err != nil {
		return nil, apperrors.ValidationField(key, "invalid date "+raw)
	}
	return &d, nil
}

// intQuery returns a positive integer query parameter, or def.
func intQuery(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func requestMeta(r *http.Request) (ip, userAgent string) {
	return r.RemoteAddr, r.UserAgent()
}
