package repository

import (
	"context"
	"time"

	"portfolio_tracker/internal/database"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// CategoryRepository handles custom category database operations.
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Upsert stores a custom category, reactivating it if it was deleted.
func (r *CategoryRepository) Upsert(ctx context.Context, c *models.CustomCategory) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO custom_categories (name, display_name, color, exposure, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			color = excluded.color,
			exposure = excluded.exposure,
			active = excluded.active
	`, string(c.Name), c.DisplayName, c.Color, string(c.Exposure), boolToInt(c.Active), c.CreatedAt)
	return err
}

// Deactivate soft-deletes a custom category. History keeps referencing it.
func (r *CategoryRepository) Deactivate(ctx context.Context, name models.Category) error {
	result, err := r.db.ExecContext(ctx, `UPDATE custom_categories SET active = 0 WHERE name = ?`, string(name))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("category")
	}
	return nil
}

// List returns every custom category, active or not, in creation order.
func (r *CategoryRepository) List() ([]*models.CustomCategory, error) {
	rows, err := r.db.Query(`
		SELECT name, display_name, color, exposure, active, created_at
		FROM custom_categories
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*models.CustomCategory, 0)
	for rows.Next() {
		c := &models.CustomCategory{}
		var name, exposure string
		var active int
		if err := rows.Scan(&name, &c.DisplayName, &c.Color, &exposure, &active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Name = models.Category(name)
		c.Exposure = models.Exposure(exposure)
		c.Active = active == 1
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
