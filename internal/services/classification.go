package services

import (
	"context"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// ReclassifyResult reports a manual classification change.
type ReclassifyResult struct {
	Ticker      string           `json:"ticker"`
	Category    *models.Category `json:"category,omitempty"`
	Sector      *models.Sector   `json:"sector,omitempty"`
	RowsUpdated int64            `json:"rows_updated"`
}

// MappingCounts reports what LoadPersistedMappings restored.
type MappingCounts struct {
	Categories int `json:"categories"`
	Tickers    int `json:"tickers"`
	Sectors    int `json:"sectors"`
	Skipped    int `json:"skipped"`
}

// Reclassify corrects a ticker's category and/or sector. The correction is
// persisted, applied to future parses, and, when clientID is set, applied
// to that client's stored detail rows.
func (s *IngestService) Reclassify(ctx context.Context, clientID, ticker string, category *models.Category, sector *models.Sector) (*ReclassifyResult, error) {
	ticker = normalizeName(ticker)
	if ticker == "" {
		return nil, apperrors.ValidationField("ticker", "ticker is required")
	}
	if category == nil && sector == nil {
		return nil, apperrors.Validation("category or sector is required")
	}
	if category != nil {
		c := models.Category(normalizeName(string(*category)))
		if !s.registry.IsKnown(c) {
			return nil, apperrors.ValidationField("category", "unknown category "+string(c)).
				WithDetails(map[string]any{"field": "category", "valid": s.registry.Categories()})
		}
		category = &c
	}
	if sector != nil {
		sec := models.Sector(normalizeName(string(*sector)))
		if sec == "" {
			return nil, apperrors.ValidationField("sector", "sector is required")
		}
		sector = &sec
	}

	res := &ReclassifyResult{Ticker: ticker, Category: category, Sector: sector}

	if clientID != "" {
		if _, err := s.writer.Do(ctx, "reclassify", clientID, func(ctx context.Context) error {
			n, err := s.stores.Details.UpdateClassification(ctx, clientID, ticker, category, sector)
			res.RowsUpdated = n
			return err
		}); err != nil {
			return nil, err
		}
	}

	if _, err := s.writer.Do(ctx, "save_mapping", clientID, func(ctx context.Context) error {
		if category != nil {
			if err := s.stores.Mappings.SaveTicker(ctx, &models.TickerMapping{Ticker: ticker, Category: *category}); err != nil {
				return err
			}
		}
		if sector != nil {
			return s.stores.Mappings.SaveSector(ctx, &models.SectorMapping{Ticker: ticker, Sector: *sector})
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if category != nil {
		if err := s.registry.RegisterMapping(ticker, *category); err != nil {
			return nil, err
		}
	}
	if sector != nil {
		if err := s.registry.RegisterSectorMapping(ticker, *sector); err != nil {
			return nil, err
		}
	}

	s.log.Info().Str("ticker", ticker).Str("client_id", clientID).Int64("rows", res.RowsUpdated).Msg("Ticker reclassified")
	return res, nil
}

// RegisterCategory stores a custom category and makes it available for classification.
func (s *IngestService) RegisterCategory(ctx context.Context, c models.CustomCategory) (*models.CustomCategory, error) {
	c.Active = true
	registered, err := s.registry.RegisterCategory(c)
	if err != nil {
		return nil, err
	}
	if _, err := s.writer.Do(ctx, "save_category", "", func(ctx context.Context) error {
		return s.stores.Categories.Upsert(ctx, &registered)
	}); err != nil {
		return nil, err
	}
	return &registered, nil
}

// DeactivateCategory soft-deletes a custom category.
func (s *IngestService) DeactivateCategory(ctx context.Context, name models.Category) error {
	name = models.Category(normalizeName(string(name)))
	if _, err := s.writer.Do(ctx, "deactivate_category", "", func(ctx context.Context) error {
		return s.stores.Categories.Deactivate(ctx, name)
	}); err != nil {
		return err
	}
	return s.registry.DeactivateCategory(name)
}

// LoadPersistedMappings restores custom categories, then ticker and sector
// mappings, into the registry. Invalid rows are logged and skipped.
func (s *IngestService) LoadPersistedMappings(ctx context.Context) (MappingCounts, error) {
	var counts MappingCounts

	categories, err := s.stores.Categories.List()
	if err != nil {
		return counts, err
	}
	for _, c := range categories {
		registered, err := s.registry.RegisterCategory(*c)
		if err != nil {
			s.log.Warn().Err(err).Str("category", string(c.Name)).Msg("Skipping stored category")
			counts.Skipped++
			continue
		}
		if !c.Active {
			_ = s.registry.DeactivateCategory(registered.Name)
		}
		counts.Categories++
	}

	tickers, err := s.stores.Mappings.Tickers()
	if err != nil {
		return counts, err
	}
	for _, m := range tickers {
		if err := s.registry.RegisterMapping(m.Ticker, m.Category); err != nil {
			s.log.Warn().Err(err).Str("ticker", m.Ticker).Msg("Skipping stored ticker mapping")
			counts.Skipped++
			continue
		}
		counts.Tickers++
	}

	sectors, err := s.stores.Mappings.Sectors()
	if err != nil {
		return counts, err
	}
	for _, m := range sectors {
		if err := s.registry.RegisterSectorMapping(m.Ticker, m.Sector); err != nil {
			counts.Skipped++
			continue
		}
		counts.Sectors++
	}

	s.log.Info().
		Int("categories", counts.Categories).
		Int("tickers", counts.Tickers).
		Int("sectors", counts.Sectors).
		Int("skipped", counts.Skipped).
		Msg("Persisted mappings loaded")
	return counts, ctx.Err()
}

// ClearAll wipes every stored snapshot and detail row.
func (s *IngestService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.writer.Do(ctx, "clear_all", "", func(ctx context.Context) error {
		return s.stores.Snapshots.ClearAll(ctx)
	})
	if err == nil {
		s.log.Warn().Msg("All snapshot data cleared")
	}
	return err
}
