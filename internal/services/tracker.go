package services

import (
	"sort"
	"time"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
)

// Evolution periods. Anything else means the whole history.
const (
	PeriodAll = "all"
	PeriodYTD = "ytd"
	PeriodMTD = "mtd"
	Period1M  = "1m"
	Period3M  = "3m"
	Period6M  = "6m"
	Period1Y  = "1y"
)

// EvolutionPoint is one date of a client's value series.
type EvolutionPoint struct {
	Date       time.Time `json:"date"`
	TotalValue float64   `json:"total_value"`
}

// CategoryReturn is the change of one category between two dates.
type CategoryReturn struct {
	Category   models.Category `json:"category"`
	StartValue float64         `json:"start_value"`
	EndValue   float64         `json:"end_value"`
	ReturnAbs  float64         `json:"return_abs"`
	ReturnPct  float64         `json:"return_pct"`
}

// Returns is the performance of a portfolio over a date range.
type Returns struct {
	ClientID       string           `json:"client_id"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	StartValue     float64          `json:"start_value"`
	EndValue       float64          `json:"end_value"`
	TotalReturnAbs float64          `json:"total_return_abs"`
	TotalReturnPct float64          `json:"total_return_pct"`
	ByCategory     []CategoryReturn `json:"by_category"`
}

// PortfolioSummary is one line of the all-portfolios overview.
type PortfolioSummary struct {
	ClientID     string    `json:"client_id"`
	ClientName   string    `json:"client_name"`
	Date         time.Time `json:"date"`
	TotalValue   float64   `json:"total_value"`
	VariationPct *float64  `json:"variation_pct"`
	VariationAbs *float64  `json:"variation_abs"`
}

// TrackerService answers time-series questions over stored snapshots.
type TrackerService struct {
	snapshots *repository.SnapshotRepository
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(snapshots *repository.SnapshotRepository) *TrackerService {
	return &TrackerService{snapshots: snapshots}
}

// PeriodStart returns the first date included in a period anchored on latest.
// ok is false for the whole-history period.
func PeriodStart(period string, latest time.Time) (time.Time, bool) {
	switch period {
	case PeriodYTD:
		return time.Date(latest.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), true
	case PeriodMTD:
		return time.Date(latest.Year(), latest.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case Period1M:
		return subMonths(latest, 1), true
	case Period3M:
		return subMonths(latest, 3), true
	case Period6M:
		return subMonths(latest, 6), true
	case Period1Y:
		return subMonths(latest, 12), true
	}
	return time.Time{}, false
}

// subMonths steps back n calendar months, clamping to the last day of the
// target month (Mar 31 minus one month is Feb 28).
func subMonths(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	d := t.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

// EvolutionSeries returns the client's total value per snapshot date,
// ascending, limited to the period ending at the latest snapshot.
func (s *TrackerService) EvolutionSeries(clientID, period string) ([]EvolutionPoint, error) {
	snaps, err := s.snapshots.SnapshotsByClient(clientID)
	if err != nil {
		return nil, err
	}
	points := make([]EvolutionPoint, 0, len(snaps))
	if len(snaps) == 0 {
		return points, nil
	}

	latest := snaps[len(snaps)-1].Date
	start, bounded := PeriodStart(period, latest)
	for _, snap := range snaps {
		if bounded && snap.Date.Before(start) {
			continue
		}
		points = append(points, EvolutionPoint{Date: snap.Date, TotalValue: snap.TotalValue})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// CalculateReturns compares two snapshot dates of a client. Nil bounds
// default to the earliest and latest stored dates.
func (s *TrackerService) CalculateReturns(clientID string, start, end *time.Time) (*Returns, error) {
	history, err := s.snapshots.HistoryByClient(clientID)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time][]*models.HistoryRow)
	var dates []time.Time
	for _, row := range history {
		if _, seen := byDate[row.Date]; !seen {
			dates = append(dates, row.Date)
		}
		byDate[row.Date] = append(byDate[row.Date], row)
	}
	if len(dates) < 2 {
		return nil, apperrors.InsufficientData("at least two snapshot dates are required to compute returns")
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	from, to := dates[0], dates[len(dates)-1]
	if start != nil {
		from = dayOf(*start)
	}
	if end != nil {
		to = dayOf(*end)
	}

	startRows, endRows := byDate[from], byDate[to]
	if len(startRows) == 0 || len(endRows) == 0 {
		return nil, apperrors.InsufficientData("no snapshot for " + repository.FormatDate(from) + " or " + repository.FormatDate(to)).
			WithDetails(map[string]any{"start": repository.FormatDate(from), "end": repository.FormatDate(to)})
	}

	r := &Returns{
		ClientID:   clientID,
		StartDate:  from,
		EndDate:    to,
		StartValue: startRows[0].PortfolioTotal,
		EndValue:   endRows[0].PortfolioTotal,
	}
	r.TotalReturnAbs = r.EndValue - r.StartValue
	if r.StartValue > 0 {
		r.TotalReturnPct = r.TotalReturnAbs / r.StartValue * 100
	}

	startVals, endVals := categoryValues(startRows), categoryValues(endRows)
	cats := make(map[models.Category]struct{})
	for c := range startVals {
		cats[c] = struct{}{}
	}
	for c := range endVals {
		cats[c] = struct{}{}
	}
	for c := range cats {
		cr := CategoryReturn{Category: c, StartValue: startVals[c], EndValue: endVals[c]}
		cr.ReturnAbs = cr.EndValue - cr.StartValue
		if cr.StartValue > 0 {
			cr.ReturnPct = cr.ReturnAbs / cr.StartValue * 100
		}
		r.ByCategory = append(r.ByCategory, cr)
	}
	sort.Slice(r.ByCategory, func(i, j int) bool { return r.ByCategory[i].Category < r.ByCategory[j].Category })
	return r, nil
}

// AllPortfoliosSummary returns the latest snapshot of every client, largest first.
func (s *TrackerService) AllPortfoliosSummary() ([]PortfolioSummary, error) {
	snaps, err := s.snapshots.LatestPerClient()
	if err != nil {
		return nil, err
	}
	out := make([]PortfolioSummary, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, PortfolioSummary{
			ClientID:     snap.ClientID,
			ClientName:   snap.ClientName,
			Date:         snap.Date,
			TotalValue:   snap.TotalValue,
			VariationPct: snap.VariationPct,
			VariationAbs: snap.VariationAbs,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalValue > out[j].TotalValue })
	return out, nil
}

// CategoryHistory returns one category's rows for a client, ascending by date.
func (s *TrackerService) CategoryHistory(clientID string, category models.Category) ([]*models.HistoryRow, error) {
	return s.snapshots.CategoryHistory(clientID, category)
}

// AvailableDates lists every snapshot date, newest first.
func (s *TrackerService) AvailableDates() ([]time.Time, error) {
	return s.snapshots.AvailableDates()
}

// DataByDate returns every client's category rows for one date.
func (s *TrackerService) DataByDate(date time.Time) ([]*models.HistoryRow, error) {
	return s.snapshots.HistoryByDate(dayOf(date))
}

func categoryValues(rows []*models.HistoryRow) map[models.Category]float64 {
	out := make(map[models.Category]float64, len(rows))
	for _, row := range rows {
		out[row.Category] += row.Value
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
