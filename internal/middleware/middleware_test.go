package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "portfolio_tracker/internal/errors"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("ok"))
	})
}

func TestRequestLogger_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(zerolog.New(&buf))(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/summary", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"path":"/api/summary"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := NewAdminGuard(string(hash)).RequireAdmin(okHandler())

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"wrong token", AdminTokenHeader, "nope", http.StatusUnauthorized},
		{"header token", AdminTokenHeader, "s3cret", http.StatusTeapot},
		{"bearer token", "Authorization", "Bearer s3cret", http.StatusTeapot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/admin/clear", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAdminGuard_DisabledWithoutHash(t *testing.T) {
	handler := NewAdminGuard("").RequireAdmin(okHandler())

	req := httptest.NewRequest("POST", "/api/admin/clear", nil)
	req.Header.Set(AdminTokenHeader, "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestHashToken_RoundTrip(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("token")))
}

type profileRequest struct {
	Name  string  `json:"name" validate:"required"`
	Pct   float64 `json:"pct" validate:"gte=0,lte=100"`
	Color string  `json:"color" validate:"omitempty,hexcolor"`
}

func TestValidator_Decode(t *testing.T) {
	v := NewValidator()

	var ok profileRequest
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"income","pct":40,"color":"#112233"}`))
	require.NoError(t, v.Decode(req, &ok))
	assert.Equal(t, "income", ok.Name)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "request body is required"},
		{"bad json", `{"name":`, "invalid JSON body"},
		{"unknown field", `{"name":"x","extra":1}`, "invalid JSON body"},
		{"missing name", `{"pct":10}`, "name: is required"},
		{"pct too high", `{"name":"x","pct":120}`, "pct: must be at most 100"},
		{"bad color", `{"name":"x","color":"red"}`, "color: must be a hex color"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var dst profileRequest
			err := v.Decode(httptest.NewRequest("POST", "/", strings.NewReader(tc.body)), &dst)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "SOL DE MAYO", SanitizeString("  SOL\x00 DE MAYO\x07 "))
	assert.Equal(t, "a\tb", SanitizeString("a\tb"))
}
