// Package classifier maps tickers to asset categories and industry sectors.
//
// A Registry holds the static reference tables plus the runtime corrections
// applied by users. It is safe for concurrent readers with a single writer.
package classifier

import (
	"sort"
	"strings"
	"sync"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// Registry is the classification state for one process or tenant.
type Registry struct {
	mu             sync.RWMutex
	tickers        map[string]models.Category // runtime ticker mappings
	sectors        map[string]models.Sector   // runtime sector mappings
	customs        map[models.Category]models.CustomCategory
	customOrdering []models.Category
}

// NewRegistry creates a Registry seeded only with the static tables.
func NewRegistry() *Registry {
	return &Registry{
		tickers: make(map[string]models.Category),
		sectors: make(map[string]models.Sector),
		customs: make(map[models.Category]models.CustomCategory),
	}
}

// NormalizeTicker uppercases and trims a ticker and drops every character
// other than ASCII letters, digits, '.' and '*'.
func NormalizeTicker(ticker string) string {
	s := strings.ToUpper(strings.TrimSpace(ticker))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '*':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// baseTicker strips one trailing D/C market suffix, then a trailing .BA.
func baseTicker(normalized string) string {
	base := normalized
	if strings.HasSuffix(base, "D") || strings.HasSuffix(base, "C") {
		base = base[:len(base)-1]
	}
	return strings.TrimSuffix(base, ".BA")
}

// Classify returns the category for a ticker and optional description.
// It never fails: anything unmatched is UNCLASSIFIED.
func (r *Registry) Classify(ticker, description string) models.Category {
	normalized := NormalizeTicker(ticker)
	if normalized == "" {
		return models.CategoryUnclassified
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cat, ok := r.lookupCategory(normalized); ok {
		return cat
	}
	if base := baseTicker(normalized); base != "" && base != normalized {
		if cat, ok := r.lookupCategory(base); ok {
			return cat
		}
	}

	combined := strings.TrimSpace(normalized + " " + strings.ToUpper(description))
	for _, group := range patternTable {
		for _, re := range group.patterns {
			if re.MatchString(combined) {
				return group.category
			}
		}
	}

	return models.CategoryUnclassified
}

// lookupCategory checks runtime mappings first so user corrections shadow the static table.
// Caller holds the read lock.
func (r *Registry) lookupCategory(ticker string) (models.Category, bool) {
	if cat, ok := r.tickers[ticker]; ok {
		return cat, true
	}
	cat, ok := staticCategories[ticker]
	return cat, ok
}

// ClassifySector returns the industry sector for a ticker, inferring it from
// the category when no table has an entry. The fallback is N/A.
func (r *Registry) ClassifySector(ticker string, category models.Category) models.Sector {
	normalized := NormalizeTicker(ticker)
	base := baseTicker(normalized)

	if normalized != "" {
		if s, ok := staticSectors[normalized]; ok {
			return s
		}
		if s, ok := staticSectors[base]; ok && base != "" {
			return s
		}

		r.mu.RLock()
		s, ok := r.sectors[normalized]
		if !ok && base != "" {
			s, ok = r.sectors[base]
		}
		r.mu.RUnlock()
		if ok {
			return s
		}
	}

	switch category {
	case models.CategoryPesoFixedIncome, models.CategorySovereignBondsUSD:
		return models.SectorFixedIncome
	case models.CategoryCryptoBTC, models.CategoryCryptoETH:
		return models.SectorCrypto
	case models.CategoryGold, models.CategorySilver:
		return models.SectorCommodities
	case models.CategoryCommoditiesExtras:
		return models.SectorMining
	}
	return models.SectorNone
}

// RegisterMapping adds a runtime ticker -> category entry. The category
// must be a known, active category.
func (r *Registry) RegisterMapping(ticker string, category models.Category) error {
	normalized := NormalizeTicker(ticker)
	if normalized == "" {
		return apperrors.ValidationField("ticker", "ticker is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isKnownLocked(category) {
		return apperrors.ValidationField("category",
			"unknown category "+string(category)).
			WithDetails(map[string]any{"field": "category", "valid": r.categoriesLocked()})
	}
	r.tickers[normalized] = category
	return nil
}

// RemoveMapping drops a runtime ticker mapping, restoring static behavior.
func (r *Registry) RemoveMapping(ticker string) {
	r.mu.Lock()
	delete(r.tickers, NormalizeTicker(ticker))
	r.mu.Unlock()
}

// RegisterSectorMapping adds a runtime ticker -> sector entry.
func (r *Registry) RegisterSectorMapping(ticker string, sector models.Sector) error {
	normalized := NormalizeTicker(ticker)
	if normalized == "" {
		return apperrors.ValidationField("ticker", "ticker is required")
	}
	sector = models.Sector(strings.ToUpper(strings.TrimSpace(string(sector))))
	if sector == "" {
		return apperrors.ValidationField("sector", "sector is required")
	}

	r.mu.Lock()
	r.sectors[normalized] = sector
	r.mu.Unlock()
	return nil
}

// RegisterCategory adds or replaces a custom category.
func (r *Registry) RegisterCategory(c models.CustomCategory) (models.CustomCategory, error) {
	c.Name = models.Category(strings.ToUpper(strings.TrimSpace(string(c.Name))))
	if c.Name == "" {
		return c, apperrors.ValidationField("name", "category name is required")
	}
	if _, ok := baseExposure[c.Name]; ok {
		return c, apperrors.Conflict("category " + string(c.Name) + " is a built-in category")
	}
	if c.DisplayName == "" {
		c.DisplayName = string(c.Name)
	}
	if c.Color == "" {
		c.Color = DefaultColor
	}
	switch c.Exposure {
	case models.ExposureDomestic, models.ExposureForeign:
	default:
		c.Exposure = models.ExposureDomestic
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.customs[c.Name]; !exists {
		r.customOrdering = append(r.customOrdering, c.Name)
	}
	r.customs[c.Name] = c
	return c, nil
}

// DeactivateCategory marks a custom category inactive. History that
// references it keeps resolving display names and colors.
func (r *Registry) DeactivateCategory(name models.Category) error {
	name = models.Category(strings.ToUpper(strings.TrimSpace(string(name))))

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.customs[name]
	if !ok {
		return apperrors.NotFoundf("custom category %s not found", name)
	}
	c.Active = false
	r.customs[name] = c
	return nil
}

// IsKnown reports whether a category is built-in or an active custom category.
func (r *Registry) IsKnown(category models.Category) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isKnownLocked(category)
}

func (r *Registry) isKnownLocked(category models.Category) bool {
	if _, ok := baseExposure[category]; ok {
		return true
	}
	c, ok := r.customs[category]
	return ok && c.Active
}

// Categories lists the base categories, then active custom ones, with UNCLASSIFIED last.
func (r *Registry) Categories() []models.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.categoriesLocked()
}

func (r *Registry) categoriesLocked() []models.Category {
	out := make([]models.Category, 0, len(models.BaseCategories)+len(r.customOrdering))
	for _, c := range models.BaseCategories {
		if c != models.CategoryUnclassified {
			out = append(out, c)
		}
	}
	for _, name := range r.customOrdering {
		if r.customs[name].Active {
			out = append(out, name)
		}
	}
	return append(out, models.CategoryUnclassified)
}

// CustomCategories returns every registered custom category, active or not.
func (r *Registry) CustomCategories() []models.CustomCategory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.CustomCategory, 0, len(r.customOrdering))
	for _, name := range r.customOrdering {
		out = append(out, r.customs[name])
	}
	return out
}

// DisplayName returns the human label of a category.
func (r *Registry) DisplayName(category models.Category) string {
	if name, ok := baseDisplayNames[category]; ok {
		return name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.customs[category]; ok {
		return c.DisplayName
	}
	return string(category)
}

// Color returns the chart color of a category.
func (r *Registry) Color(category models.Category) string {
	if color, ok := baseColors[category]; ok {
		return color
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.customs[category]; ok && c.Color != "" {
		return c.Color
	}
	return DefaultColor
}

// Exposure returns the geographic exposure of a category. Anything
// without an explicit tag is DOMESTIC.
func (r *Registry) Exposure(category models.Category) models.Exposure {
	if e, ok := baseExposure[category]; ok {
		return e
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.customs[category]; ok && c.Exposure != "" {
		return c.Exposure
	}
	return models.ExposureDomestic
}

// SectorDisplayName returns the human label of a sector.
func SectorDisplayName(sector models.Sector) string {
	if name, ok := sectorDisplayNames[sector]; ok {
		return name
	}
	return string(sector)
}

// CategoryValue is an input row for ExposureSummary.
type CategoryValue struct {
	Category models.Category
	Value    float64
}

// ExposureTotal is the aggregated value for one exposure tag.
type ExposureTotal struct {
	Exposure models.Exposure `json:"exposure"`
	Value    float64         `json:"value"`
	Pct      float64         `json:"pct"`
}

// ExposureSummary aggregates values by exposure tag. Both tags are always present.
func (r *Registry) ExposureSummary(items []CategoryValue) []ExposureTotal {
	totals := map[models.Exposure]float64{
		models.ExposureDomestic: 0,
		models.ExposureForeign:  0,
	}
	var grand float64
	for _, item := range items {
		totals[r.Exposure(item.Category)] += item.Value
		grand += item.Value
	}

	out := make([]ExposureTotal, 0, len(totals))
	for exp, value := range totals {
		pct := 0.0
		if grand > 0 {
			pct = value / grand * 100
		}
		out = append(out, ExposureTotal{Exposure: exp, Value: value, Pct: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Exposure < out[j].Exposure
	})
	return out
}
