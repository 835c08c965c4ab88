package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/services"
)

// DashboardHandler serves the time-series views over stored snapshots.
type DashboardHandler struct {
	responder
	tracker *services.TrackerService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(deps *Dependencies) *DashboardHandler {
	return &DashboardHandler{responder: responder{log: deps.Log}, tracker: deps.TrackerService}
}

// Summary returns the latest snapshot of every client, largest first.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.AllPortfoliosSummary()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// Dates returns the distinct snapshot dates, newest first.
func (h *DashboardHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.tracker.AvailableDates()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, repository.FormatDate(d))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ByDate returns every client's category rows for the date in the path.
func (h *DashboardHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date, err := repository.NormalizeDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.tracker.DataByDate(date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// Evolution returns the client's total per date over ?period= (default all).
func (h *DashboardHandler) Evolution(w http.ResponseWriter, r *http.Request) {
	period := strings.ToLower(r.URL.Query().Get("period"))
	if period == "" {
		period = services.PeriodAll
	}
	points, err := h.tracker.EvolutionSeries(clientIDParam(r), period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"period": period, "points": points})
}

// Returns computes the client's return between ?start= and ?end=.
func (h *DashboardHandler) Returns(w http.ResponseWriter, r *http.Request) {
	start, err := dateQuery(r, "start")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := dateQuery(r, "end")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	returns, err := h.tracker.CalculateReturns(clientIDParam(r), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, returns)
}

// CategoryHistory returns one category's rows for the client.
func (h *DashboardHandler) CategoryHistory(w http.ResponseWriter, r *http.Request) {
	category := models.Category(strings.ToUpper(chi.URLParam(r, "category")))
	rows, err := h.tracker.CategoryHistory(clientIDParam(r), category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}
