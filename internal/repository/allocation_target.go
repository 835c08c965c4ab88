package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

// AllocationTargetRepository stores per-client target allocation overrides, which replace
// the profile value of the categories they name.
type AllocationTargetRepository struct {
	db *database.DB
}

// NewAllocationTargetRepository creates a new AllocationTargetRepository.
func NewAllocationTargetRepository(db *database.DB) *AllocationTargetRepository {
	return &AllocationTargetRepository{db: db}
}

// Replace swaps a client's overrides for the given set.
func (r *AllocationTargetRepository) Replace(ctx context.Context, clientID string, allocations map[models.Category]float64) error {
	clientID = strings.TrimSpace(clientID)
	if err := r.Clear(ctx, clientID); err != nil {
		return err
	}
	now := time.Now()
	for cat, pct := range allocations {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO custom_allocations (client_id, category, target_pct, updated_at)
			VALUES (?, ?, ?, ?)
		`, clientID, string(cat), pct, now); err != nil {
			return fmt.Errorf("inserting override: %w", err)
		}
	}
	return nil
}

// Clear removes every override of a client.
func (r *AllocationTargetRepository) Clear(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM custom_allocations WHERE client_id = ?`, strings.TrimSpace(clientID))
	return err
}

// Get returns a client's overrides as category -> pct. Empty when none.
func (r *AllocationTargetRepository) Get(clientID string) (map[models.Category]float64, error) {
	rows, err := r.db.Query(`
		SELECT category, target_pct FROM custom_allocations WHERE client_id = ?
	`, strings.TrimSpace(clientID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.Category]float64)
	for rows.Next() {
		var cat string
		var pct float64
		if err := rows.Scan(&cat, &pct); err != nil {
			return nil, err
		}
		out[models.Category(cat)] = pct
	}
	return out, rows.Err()
}
