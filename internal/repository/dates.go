package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "portfolio_tracker/internal/errors"
)

// DateLayout is the canonical stored date form.
const DateLayout = "2006-01-02"

// serialOrigin is day zero of spreadsheet serial dates.
var serialOrigin = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// NormalizeDate converts an ISO date string, a time.Time or a spreadsheet
// serial day count into a UTC midnight time.
func NormalizeDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case *time.Time:
		if d == nil {
			return time.Time{}, apperrors.Validation("date is required")
		}
		return NormalizeDate(*d)
	case int:
		return fromSerial(float64(d)), nil
	case int64:
		return fromSerial(float64(d)), nil
	case float64:
		return fromSerial(d), nil
	case string:
		return parseDateString(d)
	}
	return time.Time{}, apperrors.Validationf("unsupported date value %v", v)
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.Validation("date is required")
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f), nil
	}
	return time.Time{}, apperrors.Validationf("invalid date %q", s)
}

func fromSerial(days float64) time.Time {
	return serialOrigin.AddDate(0, 0, int(days))
}

// FormatDate renders a date in the stored ISO form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SerialDay returns the spreadsheet serial day count for a date.
func SerialDay(t time.Time) int {
	t, _ = NormalizeDate(t)
	return int(t.Sub(serialOrigin).Hours() / 24)
}

// dateMatch returns a WHERE fragment matching every stored form of a date:
// ISO text (with or without a time part) and spreadsheet serials stored as
// integer, real or numeric text. Serials truncate to the day like fromSerial.
func dateMatch(t time.Time) (string, []any) {
	serial := float64(SerialDay(t))
	return `(substr(date, 1, 10) = ? OR (date NOT LIKE '%-%' AND CAST(date AS REAL) >= ? AND CAST(date AS REAL) < ?))`,
		[]any{FormatDate(t), serial, serial + 1}
}

// scanDate parses a stored date column.
func scanDate(raw string) (time.Time, error) {
	t, err := parseDateString(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored date %q: %w", raw, err)
	}
	return t, nil
}
