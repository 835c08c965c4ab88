package ingest

import (
	"strings"

	"portfolio_tracker/internal/models"
)

// Sectioned export layout.
const (
	colTicker      = 0
	colDescription = 1
	colGuarantee   = 3 // quantity fallback
	colAvailable   = 4
	colPrice       = 6
	colAmount      = 7
)

// ParseSectioned extracts holdings from a sectioned export. Rows are
// grouped under the most recent "Tipo de Activo:" header; metadata,
// header and subtotal rows are skipped. Category and sector are left
// for the caller.
func ParseSectioned(rows [][]string) []models.Holding {
	var (
		holdings []models.Holding
		section  string
	)

	for _, row := range rows {
		cell0 := cellAt(row, colTicker)
		if isBlank(cell0) {
			continue
		}

		if strings.HasPrefix(cell0, sectionMarker) {
			section = strings.TrimSpace(strings.TrimPrefix(cell0, sectionMarker))
			continue
		}
		if skipSectionedRow(cell0) {
			continue
		}

		qtyCell := cellAt(row, colAvailable)
		if isBlank(qtyCell) {
			qtyCell = cellAt(row, colGuarantee)
		}
		quantity := CleanNumeric(qtyCell)
		price := CleanNumeric(cellAt(row, colPrice))

		value := quantity * price
		if amount := cellAt(row, colAmount); !isBlank(amount) {
			value = CleanNumeric(amount)
		}

		description := cellAt(row, colDescription)
		if isBlank(description) {
			description = ""
		}

		holdings = append(holdings, models.Holding{
			Ticker:        strings.ToUpper(cell0),
			Description:   description,
			Quantity:      quantity,
			Price:         price,
			Value:         value,
			BrokerSection: section,
		})
	}

	return holdings
}

func skipSectionedRow(cell0 string) bool {
	switch cell0 {
	case "Ticker", "Total":
		return true
	}
	return strings.HasPrefix(cell0, "Subtotal") ||
		strings.Contains(cell0, portfolioMarker) ||
		strings.HasPrefix(cell0, "Fecha") ||
		strings.HasPrefix(cell0, "TC USD")
}
