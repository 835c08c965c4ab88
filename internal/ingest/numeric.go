package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarkers = strings.NewReplacer("$", "", "USD", "", "ARS", "")

// CleanNumeric parses a broker-formatted number. Both Argentine (1.234,56)
// and US (1,234.56) styles are accepted: when both separators appear, the
// one occurring later is the decimal point, and a lone comma is always a
// decimal comma. Anything unparseable is 0.
func CleanNumeric(raw string) float64 {
	s := strings.TrimSpace(currencyMarkers.Replace(strings.TrimSpace(raw)))
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// isBlank reports whether a cell carries no value.
func isBlank(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

// cellAt returns row[i] trimmed, or "" when the row is short.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
