package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "portfolio_tracker/internal/errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Validator decodes and validates JSON request bodies using struct tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator. Field errors are reported under
// their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Decode reads a JSON body into dst and validates it. Every failure is a
// validation error carrying the offending fields in its details.
func (v *Validator) Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Wrap(apperrors.ErrValidation, "invalid JSON body", err)
	}
	return v.Struct(dst)
}

// Struct validates an already decoded value.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid request", err)
	}

	fields := make([]ValidationError, 0, len(fieldErrs))
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		e := ValidationError{Field: fe.Field(), Message: describe(fe)}
		fields = append(fields, e)
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return apperrors.Validation(strings.Join(msgs, "; ")).
		WithDetails(map[string]any{"errors": fields})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	case "numeric":
		return "must be numeric"
	}
	return "failed " + fe.Tag() + " validation"
}

// SanitizeString trims whitespace and removes control characters.
func SanitizeString(s string) string {
	// Trim whitespace
	s = strings.TrimSpace(s)
	// Remove null bytes and other control characters
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return s
}
