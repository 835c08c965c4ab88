package repository

import (
	"context"
	"strings"
	"time"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

// MappingRepository persists ticker -> category and ticker -> sector corrections.
type MappingRepository struct {
	db *database.DB
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db *database.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// SaveTicker upserts a ticker -> category mapping.
func (r *MappingRepository) SaveTicker(ctx context.Context, m *models.TickerMapping) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ticker_mappings (ticker, category, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET category = excluded.category, description = excluded.description
	`, strings.ToUpper(m.Ticker), string(m.Category), m.Description, time.Now())
	return err
}

// SaveSector upserts a ticker -> sector mapping.
func (r *MappingRepository) SaveSector(ctx context.Context, m *models.SectorMapping) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sector_mappings (ticker, sector, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET sector = excluded.sector, description = excluded.description
	`, strings.ToUpper(m.Ticker), string(m.Sector), m.Description, time.Now())
	return err
}

// Tickers returns every persisted ticker mapping.
func (r *MappingRepository) Tickers() ([]*models.TickerMapping, error) {
	rows, err := r.db.Query(`SELECT ticker, category, description, created_at FROM ticker_mappings ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]*models.TickerMapping, 0)
	for rows.Next() {
		m := &models.TickerMapping{}
		var cat string
		if err := rows.Scan(&m.Ticker, &cat, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Category = models.Category(cat)
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// Sectors returns every persisted sector mapping.
func (r *MappingRepository) Sectors() ([]*models.SectorMapping, error) {
	rows, err := r.db.Query(`SELECT ticker, sector, description, created_at FROM sector_mappings ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]*models.SectorMapping, 0)
	for rows.Next() {
		m := &models.SectorMapping{}
		var sector string
		if err := rows.Scan(&m.Ticker, &sector, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Sector = models.Sector(sector)
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
