package ingest

import (
	"strings"

	"portfolio_tracker/internal/models"
)

// ColumnarResult carries the parsed holdings plus any column the sheet lacked.
type ColumnarResult struct {
	Holdings       []models.Holding
	HeaderRow      int
	MissingColumns []string
}

// ParseColumnar extracts holdings from a single-header sheet. The header
// is the first of the top rows holding a ticker column, else row 0.
// Without a ticker column the result is empty and MissingColumns says why.
func ParseColumnar(rows [][]string) ColumnarResult {
	if len(rows) == 0 {
		return ColumnarResult{MissingColumns: []string{"ticker"}}
	}

	headerIdx := 0
	for i, row := range headRows(rows) {
		if findColumn(row, tickerColumns) >= 0 {
			headerIdx = i
			break
		}
	}
	header := rows[headerIdx]
	res := ColumnarResult{HeaderRow: headerIdx}

	tickerCol := findColumn(header, tickerColumns)
	if tickerCol < 0 {
		res.MissingColumns = []string{"ticker"}
		return res
	}
	amountCol := findColumn(header, amountColumns)
	qtyCol := findColumn(header, quantityColumns)
	descCol := findColumn(header, descriptionColumns)
	if amountCol < 0 {
		res.MissingColumns = append(res.MissingColumns, "amount")
	}
	if qtyCol < 0 {
		res.MissingColumns = append(res.MissingColumns, "quantity")
	}

	for _, row := range rows[headerIdx+1:] {
		ticker := strings.ToUpper(cellAt(row, tickerCol))
		if ticker == "" || ticker == "NAN" {
			continue
		}

		h := models.Holding{Ticker: ticker}
		if descCol >= 0 {
			if d := cellAt(row, descCol); !isBlank(d) {
				h.Description = d
			}
		}
		if qtyCol >= 0 {
			h.Quantity = CleanNumeric(cellAt(row, qtyCol))
		}
		if amountCol >= 0 {
			h.Value = CleanNumeric(cellAt(row, amountCol))
		}
		if h.Quantity != 0 {
			h.Price = h.Value / h.Quantity
		}
		res.Holdings = append(res.Holdings, h)
	}

	return res
}
