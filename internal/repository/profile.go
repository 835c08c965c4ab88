package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"portfolio_tracker/internal/database"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// ProfileRepository stores user-defined allocation profiles.
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Save replaces a custom profile. Zero entries are not stored.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.AllocationProfile) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM custom_profiles WHERE name = ?`, profile.Name); err != nil {
		return fmt.Errorf("replacing profile: %w", err)
	}
	now := time.Now()
	for cat, pct := range profile.Allocations {
		if pct <= 0 {
			continue
		}
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO custom_profiles (name, category, target_pct, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, profile.Name, string(cat), pct, profile.CreatedBy, now); err != nil {
			return fmt.Errorf("inserting profile row: %w", err)
		}
	}
	return nil
}

// Get returns a custom profile, or nil when unknown.
func (r *ProfileRepository) Get(name string) (*models.AllocationProfile, error) {
	profiles, err := r.query(`WHERE name = ?`, name)
	if err != nil || len(profiles) == 0 {
		return nil, err
	}
	return profiles[0], nil
}

// List returns every custom profile ordered by name.
func (r *ProfileRepository) List() ([]*models.AllocationProfile, error) {
	return r.query(``)
}

// Delete removes a custom profile.
func (r *ProfileRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM custom_profiles WHERE name = ?`, name)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("profile")
	}
	return nil
}

func (r *ProfileRepository) query(where string, args ...any) ([]*models.AllocationProfile, error) {
	rows, err := r.db.Query(`
		SELECT name, category, target_pct, created_by, created_at
		FROM custom_profiles `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*models.AllocationProfile)
	for rows.Next() {
		var name, category, createdBy string
		var pct float64
		var createdAt time.Time
		if err := rows.Scan(&name, &category, &pct, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		p, ok := byName[name]
		if !ok {
			ts := createdAt
			p = &models.AllocationProfile{
				Name:        name,
				Allocations: make(map[models.Category]float64),
				CreatedBy:   createdBy,
				CreatedAt:   &ts,
			}
			byName[name] = p
		}
		p.Allocations[models.Category(category)] = pct
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*models.AllocationProfile, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
