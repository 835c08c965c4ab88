package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

// SnapshotRepository stores per-client category history and snapshot totals.
type SnapshotRepository struct {
	db *database.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// RoundPct rounds a percentage to two decimals, half away from zero.
func RoundPct(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SaveSnapshot replaces the (client, date) snapshot. Existing history and
// snapshot rows for that key are deleted first, whatever form their date
// was stored in, then one history row per category and the snapshot row
// are written. Variation is computed against the latest earlier snapshot.
//
// The delete and inserts are not wrapped in a transaction; a failure in
// between leaves the key empty until the next save.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, clientID, clientName string, date time.Time, totals map[models.Category]float64, total float64) (*models.Snapshot, error) {
	date, _ = NormalizeDate(date)
	day := FormatDate(date)
	if err := r.deleteKey(ctx, clientID, date); err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(totals))
	for cat := range totals {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, cat := range categories {
		value := totals[cat]
		pct := 0.0
		if total > 0 {
			pct = RoundPct(value / total * 100)
		}
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO holdings_history (date, client_id, client_name, category, value, pct, portfolio_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, day, clientID, clientName, string(cat), value, pct, total); err != nil {
			return nil, fmt.Errorf("inserting history row: %w", err)
		}
	}

	snap := &models.Snapshot{
		Date:       date,
		ClientID:   clientID,
		ClientName: clientName,
		TotalValue: total,
	}
	prev, err := r.previousSnapshot(clientID, date)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.TotalValue > 0 {
		abs := total - prev.TotalValue
		pct := abs / prev.TotalValue * 100
		snap.VariationAbs = &abs
		snap.VariationPct = &pct
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (date, client_id, client_name, total_value, variation_pct, variation_abs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, day, clientID, clientName, total, nullFloat(snap.VariationPct), nullFloat(snap.VariationAbs)); err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	return snap, nil
}

func (r *SnapshotRepository) deleteKey(ctx context.Context, clientID string, date time.Time) error {
	match, keys := dateMatch(date)
	args := append([]any{clientID}, keys...)
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM holdings_history WHERE client_id = ? AND `+match, args...); err != nil {
		return fmt.Errorf("deleting history rows: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE client_id = ? AND `+match, args...); err != nil {
		return fmt.Errorf("deleting snapshot rows: %w", err)
	}
	return nil
}

// previousSnapshot returns the latest snapshot strictly before date.
func (r *SnapshotRepository) previousSnapshot(clientID string, date time.Time) (*models.Snapshot, error) {
	snaps, err := r.SnapshotsByClient(clientID)
	if err != nil {
		return nil, err
	}
	var prev *models.Snapshot
	for _, s := range snaps {
		if s.Date.Before(date) {
			prev = s
		}
	}
	return prev, nil
}

// LatestSnapshot returns the most recent snapshot of a client, or nil.
func (r *SnapshotRepository) LatestSnapshot(clientID string) (*models.Snapshot, error) {
	snaps, err := r.SnapshotsByClient(clientID)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[len(snaps)-1], nil
}

// SnapshotsByClient returns a client's snapshots in ascending date order.
// Dates are compared after normalization, so serial and ISO rows sort together.
func (r *SnapshotRepository) SnapshotsByClient(clientID string) ([]*models.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT date, client_id, client_name, total_value, variation_pct, variation_abs
		FROM snapshots
		WHERE client_id = ?
		ORDER BY id
	`, strings.TrimSpace(clientID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	return snaps, nil
}

// LatestPerClient returns the most recent snapshot of every client.
func (r *SnapshotRepository) LatestPerClient() ([]*models.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT date, client_id, client_name, total_value, variation_pct, variation_abs
		FROM snapshots
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*models.Snapshot)
	for _, s := range snaps {
		if cur, ok := latest[s.ClientID]; !ok || !s.Date.Before(cur.Date) {
			latest[s.ClientID] = s
		}
	}
	out := make([]*models.Snapshot, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// HistoryByClient returns every category row of a client, ascending by date.
func (r *SnapshotRepository) HistoryByClient(clientID string) ([]*models.HistoryRow, error) {
	return r.queryHistory(`WHERE client_id = ?`, strings.TrimSpace(clientID))
}

// CategoryHistory returns one category's rows for a client, ascending by date.
func (r *SnapshotRepository) CategoryHistory(clientID string, category models.Category) ([]*models.HistoryRow, error) {
	return r.queryHistory(`WHERE client_id = ? AND category = ?`, strings.TrimSpace(clientID), string(category))
}

// HistoryByDate returns every client's category rows for one date.
func (r *SnapshotRepository) HistoryByDate(date time.Time) ([]*models.HistoryRow, error) {
	match, keys := dateMatch(date)
	return r.queryHistory(`WHERE `+match, keys...)
}

// AvailableDates returns the distinct snapshot dates, newest first.
func (r *SnapshotRepository) AvailableDates() ([]time.Time, error) {
	rows, err := r.db.Query(`SELECT DISTINCT date FROM holdings_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := scanDate(raw)
		if err != nil {
			continue
		}
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

// ClearAll wipes history, snapshots and detail rows. Configuration
// tables (clients, profiles, mappings) are kept.
func (r *SnapshotRepository) ClearAll(ctx context.Context) error {
	for _, table := range []string{"holdings_history", "snapshots", "detail_records"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func (r *SnapshotRepository) queryHistory(where string, args ...any) ([]*models.HistoryRow, error) {
	rows, err := r.db.Query(`
		SELECT date, client_id, client_name, category, value, pct, portfolio_total
		FROM holdings_history
		`+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*models.HistoryRow, 0)
	for rows.Next() {
		h := &models.HistoryRow{}
		var raw, category string
		if err := rows.Scan(&raw, &h.ClientID, &h.ClientName, &category, &h.Value, &h.Pct, &h.PortfolioTotal); err != nil {
			return nil, err
		}
		if h.Date, err = scanDate(raw); err != nil {
			return nil, err
		}
		h.Category = models.Category(category)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })
	return history, nil
}

func scanSnapshots(rows *sql.Rows) ([]*models.Snapshot, error) {
	snaps := make([]*models.Snapshot, 0)
	for rows.Next() {
		s := &models.Snapshot{}
		var raw string
		var varPct, varAbs sql.NullFloat64
		if err := rows.Scan(&raw, &s.ClientID, &s.ClientName, &s.TotalValue, &varPct, &varAbs); err != nil {
			return nil, err
		}
		d, err := scanDate(raw)
		if err != nil {
			return nil, err
		}
		s.Date = d
		if varPct.Valid {
			s.VariationPct = &varPct.Float64
		}
		if varAbs.Valid {
			s.VariationAbs = &varAbs.Float64
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
