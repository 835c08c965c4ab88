package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/services"
)

// ExportHandler handles data export requests.
type ExportHandler struct {
	responder
	deps *Dependencies
	now  func() time.Time
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps *Dependencies) *ExportHandler {
	return &ExportHandler{responder: responder{log: deps.Log}, deps: deps, now: time.Now}
}

// ExportHoldings exports a client's detail rows as CSV, in stored column
// order. ?date= limits the export to one snapshot date.
func (h *ExportHandler) ExportHoldings(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDParam(r)
	date, err := dateQuery(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	records, err := h.deps.DetailRepo.ListByClient(clientID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, detailRow(rec))
	}
	h.writeCSV(w, fmt.Sprintf("holdings_%s_%s.csv", clientID, h.now().Format(repository.DateLayout)), models.DetailColumns, rows)
}

// ExportSummary exports the latest snapshot of every client as CSV.
func (h *ExportHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deps.TrackerService.AllPortfoliosSummary()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, summaryRow(s))
	}
	h.writeCSV(w, fmt.Sprintf("portfolios_%s.csv", h.now().Format(repository.DateLayout)),
		[]string{"date", "client_id", "client_name", "total_value", "variation_pct", "variation_abs"}, rows)
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, filename string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		h.log.Error().Err(err).Msg("Error writing CSV header")
		return
	}
	if err := writer.WriteAll(rows); err != nil {
		h.log.Error().Err(err).Msg("Error writing CSV rows")
	}
}

func detailRow(rec *models.DetailRecord) []string {
	return []string{
		repository.FormatDate(rec.Date),
		rec.ClientID,
		rec.ClientName,
		rec.Ticker,
		rec.Description,
		formatFloat(rec.Quantity, -1),
		formatFloat(rec.Price, 4),
		formatFloat(rec.Value, 2),
		string(rec.Category),
		string(rec.Sector),
		formatFloat(rec.FXMEP, 2),
		formatFloat(rec.FXCCL, 2),
	}
}

func summaryRow(s services.PortfolioSummary) []string {
	return []string{
		repository.FormatDate(s.Date),
		s.ClientID,
		s.ClientName,
		formatFloat(s.TotalValue, 2),
		optionalFloat(s.VariationPct),
		optionalFloat(s.VariationAbs),
	}
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, 2)
}
