package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"portfolio_tracker/internal/database"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// DetailRepository stores per-ticker holding rows.
type DetailRepository struct {
	db *database.DB
}

// NewDetailRepository creates a new DetailRepository.
func NewDetailRepository(db *database.DB) *DetailRepository {
	return &DetailRepository{db: db}
}

var detailSelect = `SELECT ` + strings.Join(models.DetailColumns, ", ") + ` FROM detail_records`

// Save replaces every detail row of a client with the given holdings.
// Only the latest ingested date is kept per client.
func (r *DetailRepository) Save(ctx context.Context, clientID, clientName string, date time.Time, holdings []models.Holding, fx models.FXRates) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM detail_records WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("purging detail rows: %w", err)
	}

	day := FormatDate(date)
	insert := `INSERT INTO detail_records (` + strings.Join(models.DetailColumns, ", ") + `)
		VALUES (` + placeholders(len(models.DetailColumns)) + `)`
	for _, h := range holdings {
		sector := h.Sector
		if sector == "" {
			sector = models.SectorNone
		}
		if _, err := r.db.ExecContext(ctx, insert,
			day, clientID, clientName, h.Ticker, h.Description,
			h.Quantity, h.Price, h.Value, string(h.Category), string(sector), fx.MEP, fx.CCL,
		); err != nil {
			return fmt.Errorf("inserting detail row %s: %w", h.Ticker, err)
		}
	}
	return nil
}

// ListByClient returns a client's detail rows, optionally for one date.
func (r *DetailRepository) ListByClient(clientID string, date *time.Time) ([]*models.DetailRecord, error) {
	query := detailSelect + ` WHERE client_id = ?`
	args := []any{strings.TrimSpace(clientID)}
	if date != nil {
		match, keys := dateMatch(*date)
		query += ` AND ` + match
		args = append(args, keys...)
	}
	query += ` ORDER BY value DESC, ticker`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDetails(rows)
}

// ListPage returns one page of a client's detail rows, largest first.
func (r *DetailRepository) ListPage(clientID string, p Pagination) (PaginatedResult[*models.DetailRecord], error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM detail_records WHERE client_id = ?`, clientID).Scan(&total); err != nil {
		return PaginatedResult[*models.DetailRecord]{}, err
	}

	rows, err := r.db.Query(detailSelect+` WHERE client_id = ? ORDER BY value DESC, ticker LIMIT ? OFFSET ?`,
		clientID, p.Limit, p.Offset)
	if err != nil {
		return PaginatedResult[*models.DetailRecord]{}, err
	}
	defer rows.Close()

	items, err := scanDetails(rows)
	if err != nil {
		return PaginatedResult[*models.DetailRecord]{}, err
	}
	return NewPaginatedResult(items, total, p), nil
}

// LatestFX returns the FX rates stored with a client's detail rows, or nil.
func (r *DetailRepository) LatestFX(clientID string) (*models.FXRates, error) {
	fx := &models.FXRates{}
	err := r.db.QueryRow(`
		SELECT fx_mep, fx_ccl FROM detail_records WHERE client_id = ? ORDER BY id DESC LIMIT 1
	`, clientID).Scan(&fx.MEP, &fx.CCL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fx, nil
}

// AllLatestFX returns the stored FX rates of every client.
func (r *DetailRepository) AllLatestFX() (map[string]models.FXRates, error) {
	rows, err := r.db.Query(`
		SELECT client_id, fx_mep, fx_ccl FROM detail_records
		WHERE id IN (SELECT MAX(id) FROM detail_records GROUP BY client_id)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.FXRates)
	for rows.Next() {
		var id string
		var fx models.FXRates
		if err := rows.Scan(&id, &fx.MEP, &fx.CCL); err != nil {
			return nil, err
		}
		out[id] = fx
	}
	return out, rows.Err()
}

// UpdateClassification rewrites category and/or sector on a client's rows
// for one ticker. Nil fields are left untouched. It returns the number of
// matched rows and a not-found error when there are none.
func (r *DetailRepository) UpdateClassification(ctx context.Context, clientID, ticker string, category *models.Category, sector *models.Sector) (int64, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*category))
	}
	if sector != nil {
		sets = append(sets, "sector = ?")
		args = append(args, string(*sector))
	}
	if len(sets) == 0 {
		return 0, apperrors.Validation("nothing to update: category or sector is required")
	}
	args = append(args, strings.TrimSpace(clientID), strings.ToUpper(strings.TrimSpace(ticker)))

	result, err := r.db.ExecContext(ctx,
		`UPDATE detail_records SET `+strings.Join(sets, ", ")+` WHERE client_id = ? AND ticker = ?`, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperrors.NotFoundf("no detail rows for client %s ticker %s", clientID, ticker)
	}
	return n, nil
}

func scanDetails(rows *sql.Rows) ([]*models.DetailRecord, error) {
	records := make([]*models.DetailRecord, 0)
	for rows.Next() {
		d := &models.DetailRecord{}
		var raw, category, sector string
		if err := rows.Scan(&raw, &d.ClientID, &d.ClientName, &d.Ticker, &d.Description,
			&d.Quantity, &d.Price, &d.Value, &category, &sector, &d.FXMEP, &d.FXCCL); err != nil {
			return nil, err
		}
		date, err := scanDate(raw)
		if err != nil {
			return nil, err
		}
		d.Date = date
		d.Category = models.Category(category)
		d.Sector = models.Sector(sector)
		records = append(records, d)
	}
	return records, rows.Err()
}
