package ingest

import (
	"strings"

	"portfolio_tracker/internal/models"
)

// Format identifies the layout of a broker export.
type Format string

const (
	// FormatSectioned is the multi-section export: metadata rows, then
	// "Tipo de Activo:" headed blocks with subtotals.
	FormatSectioned Format = "sectioned"
	// FormatColumnar is a single header row followed by data rows.
	FormatColumnar Format = "columnar"
	FormatUnknown  Format = "unknown"
)

// scanRows bounds how far detection and metadata extraction look.
const scanRows = 10

const (
	sectionMarker   = "Tipo de Activo:"
	portfolioMarker = "Tenencias en Portfolio"
	mepLabel        = "TC USD MEP"
	cclLabel        = "TC USD CCL"
)

// Header candidates, matched case-insensitively. Broker exports are in
// Spanish, English variants show up in aggregator downloads.
var (
	tickerColumns = []string{
		"ticker", "símbolo", "simbolo", "especie", "activo", "instrumento",
		"symbol", "asset", "codigo", "código",
	}
	amountColumns = []string{
		"valorización", "valorizacion", "monto", "valor", "total", "importe",
		"market_value", "value", "tenencia", "posición", "posicion",
		"valor_mercado", "valor mercado",
	}
	quantityColumns = []string{
		"cantidad", "nominales", "qty", "quantity", "unidades", "titulos",
		"títulos", "shares",
	}
	descriptionColumns = []string{
		"descripción", "descripcion", "description", "nombre", "name", "detalle",
	}
	// detection is stricter than column matching
	detectColumns = []string{"ticker", "especie", "símbolo", "simbolo"}
)

// DetectFormat inspects the first rows of a sheet.
func DetectFormat(rows [][]string) Format {
	head := headRows(rows)
	for _, row := range head {
		cell0 := cellAt(row, 0)
		if strings.Contains(cell0, sectionMarker) ||
			strings.Contains(cell0, portfolioMarker) ||
			strings.Contains(cell0, mepLabel) ||
			strings.Contains(cell0, cclLabel) {
			return FormatSectioned
		}
	}
	for _, row := range head {
		if findColumn(row, detectColumns) >= 0 {
			return FormatColumnar
		}
	}
	return FormatUnknown
}

// ExtractFXRates reads the MEP and CCL label rows near the top of a
// sectioned export. Missing or zero rates fall back to the default.
func ExtractFXRates(rows [][]string, fallback float64) models.FXRates {
	var fx models.FXRates
	for _, row := range headRows(rows) {
		cell0 := cellAt(row, 0)
		switch {
		case strings.Contains(cell0, mepLabel):
			fx.MEP = CleanNumeric(cellAt(row, 1))
		case strings.Contains(cell0, cclLabel):
			fx.CCL = CleanNumeric(cellAt(row, 1))
		}
	}
	if fx.MEP == 0 {
		fx.MEP = fallback
	}
	if fx.CCL == 0 {
		fx.CCL = fallback
	}
	return fx
}

func headRows(rows [][]string) [][]string {
	if len(rows) > scanRows {
		return rows[:scanRows]
	}
	return rows
}

// findColumn returns the index of the first header cell matching any
// candidate, honoring candidate priority. -1 when none match.
func findColumn(header []string, candidates []string) int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	for _, c := range candidates {
		if i, ok := index[c]; ok {
			return i
		}
	}
	return -1
}
