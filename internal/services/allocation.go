package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"portfolio_tracker/internal/classifier"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
)

// Deviation thresholds.
const (
	// Tolerance is the band, in percentage points, within which a category is OK.
	Tolerance = 5.0
	// UnboundedDeviation is the relative deviation reported for a category
	// that is held but has no target.
	UnboundedDeviation = 999.0
	// sumTolerance bounds how far a saved profile may drift from 100%.
	sumTolerance = 0.1
)

// Built-in profile names.
const (
	ProfileConservative = "conservative"
	ProfileModerate     = "moderate"
	ProfileAggressive   = "aggressive"

	DefaultProfile = ProfileModerate
)

// BuiltinProfiles are fixed in code and cannot be overwritten.
var BuiltinProfiles = map[string]map[models.Category]float64{
	ProfileConservative: {
		models.CategoryCashEquivalent:  40,
		models.CategoryPesoFixedIncome: 35,
		models.CategoryGold:            15,
		models.CategoryUSATech:         10,
	},
	ProfileModerate: {
		models.CategoryUSATech:         25,
		models.CategoryPesoFixedIncome: 25,
		models.CategoryArgentinaEquity: 20,
		models.CategoryGold:            15,
		models.CategoryCashEquivalent:  15,
	},
	ProfileAggressive: {
		models.CategoryUSATech:         35,
		models.CategoryArgentinaEquity: 25,
		models.CategoryCryptoBTC:       15,
		models.CategoryGold:            10,
		models.CategoryPesoFixedIncome: 10,
		models.CategoryCashEquivalent:  5,
	},
}

// Status classifies a category's deviation from target.
type Status string

const (
	StatusOK    Status = "OK"
	StatusOver  Status = "OVER"
	StatusUnder Status = "UNDER"
)

// Action is a rebalancing direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ComparisonRow compares one category's actual and target weight.
type ComparisonRow struct {
	Category          models.Category `json:"category"`
	DisplayName       string          `json:"display_name,omitempty"`
	Color             string          `json:"color,omitempty"`
	ActualPct         float64         `json:"actual_pct"`
	TargetPct         float64         `json:"target_pct"`
	Deviation         float64         `json:"deviation"`          // percentage points
	RelativeDeviation float64         `json:"relative_deviation"` // % of target
	Unbounded         bool            `json:"unbounded"`          // held with no target
	Status            Status          `json:"status"`
}

// Suggestion is a first-order rebalancing trade.
type Suggestion struct {
	Action       Action          `json:"action"`
	Category     models.Category `json:"category"`
	DisplayName  string          `json:"display_name,omitempty"`
	Amount       float64         `json:"amount"`
	DeviationPct float64         `json:"deviation_pct"`
}

// Analysis bundles everything the allocation view needs for one client.
type Analysis struct {
	ClientID    string                      `json:"client_id"`
	Profile     string                      `json:"profile"`
	TotalValue  float64                     `json:"total_value"`
	Target      map[models.Category]float64 `json:"target"`
	Current     map[models.Category]float64 `json:"current"`
	Comparison  []ComparisonRow             `json:"comparison"`
	Suggestions []Suggestion                `json:"suggestions"`
	Exposure    []classifier.ExposureTotal  `json:"exposure"`
}

// CurrentAllocation returns each held category's share of the total, in
// percent. Categories not held are absent. A zero or negative total
// yields an empty map.
func CurrentAllocation(holdings []models.Holding) map[models.Category]float64 {
	out := make(map[models.Category]float64)
	subtotals, total := categoryTotals(holdings)
	if total <= 0 {
		return out
	}
	for cat, v := range subtotals {
		out[cat] = v / total * 100
	}
	return out
}

// Compare builds one row per category present in either map, sorted by
// absolute deviation, largest first.
func Compare(current, target map[models.Category]float64) []ComparisonRow {
	keys := make(map[models.Category]struct{}, len(current)+len(target))
	for k := range current {
		keys[k] = struct{}{}
	}
	for k := range target {
		keys[k] = struct{}{}
	}

	rows := make([]ComparisonRow, 0, len(keys))
	for cat := range keys {
		actual := current[cat]
		objective := target[cat]
		dev := actual - objective

		row := ComparisonRow{
			Category:  cat,
			ActualPct: actual,
			TargetPct: objective,
			Deviation: dev,
		}
		switch {
		case objective > 0:
			row.RelativeDeviation = dev / objective * 100
		case dev != 0:
			row.RelativeDeviation = UnboundedDeviation
			row.Unbounded = true
		}

		switch {
		case math.Abs(dev) <= Tolerance:
			row.Status = StatusOK
		case dev > 0:
			row.Status = StatusOver
		default:
			row.Status = StatusUnder
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		di, dj := math.Abs(rows[i].Deviation), math.Abs(rows[j].Deviation)
		if di != dj {
			return di > dj
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// Suggest turns every non-OK row into a trade of |deviation|% of total.
func Suggest(rows []ComparisonRow, total float64) []Suggestion {
	suggestions := make([]Suggestion, 0)
	for _, row := range rows {
		var action Action
		switch row.Status {
		case StatusOver:
			action = ActionSell
		case StatusUnder:
			action = ActionBuy
		default:
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Action:       action,
			Category:     row.Category,
			DisplayName:  row.DisplayName,
			Amount:       math.Abs(row.Deviation / 100 * total),
			DeviationPct: row.Deviation,
		})
	}
	return suggestions
}

// AllocationService resolves target allocations and compares them with holdings.
type AllocationService struct {
	registry  *classifier.Registry
	clients   *repository.ClientRepository
	profiles  *repository.ProfileRepository
	targets   *repository.AllocationTargetRepository
	details   *repository.DetailRepository
	snapshots *repository.SnapshotRepository
}

// NewAllocationService creates a new AllocationService.
func NewAllocationService(
	registry *classifier.Registry,
	clients *repository.ClientRepository,
	profiles *repository.ProfileRepository,
	targets *repository.AllocationTargetRepository,
	details *repository.DetailRepository,
	snapshots *repository.SnapshotRepository,
) *AllocationService {
	return &AllocationService{
		registry:  registry,
		clients:   clients,
		profiles:  profiles,
		targets:   targets,
		details:   details,
		snapshots: snapshots,
	}
}

// Profile resolves a profile by name, built-ins first. Nil when unknown.
func (s *AllocationService) Profile(name string) (*models.AllocationProfile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if base, ok := BuiltinProfiles[name]; ok {
		return &models.AllocationProfile{Name: name, Builtin: true, Allocations: copyAllocations(base)}, nil
	}
	return s.profiles.Get(name)
}

// Profiles lists built-in profiles followed by custom ones.
func (s *AllocationService) Profiles() ([]*models.AllocationProfile, error) {
	out := make([]*models.AllocationProfile, 0, len(BuiltinProfiles))
	for _, name := range []string{ProfileConservative, ProfileModerate, ProfileAggressive} {
		out = append(out, &models.AllocationProfile{Name: name, Builtin: true, Allocations: copyAllocations(BuiltinProfiles[name])})
	}
	custom, err := s.profiles.List()
	if err != nil {
		return nil, err
	}
	return append(out, custom...), nil
}

// TargetAllocation returns the client's profile merged with its overrides.
// Unknown clients, and clients whose profile no longer exists, get the
// default profile.
func (s *AllocationService) TargetAllocation(clientID string) (map[models.Category]float64, string, error) {
	profileName := DefaultProfile
	client, err := s.clients.GetByID(clientID)
	if err != nil {
		return nil, "", err
	}
	if client != nil && client.Profile != "" {
		profileName = client.Profile
	}

	profile, err := s.Profile(profileName)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		profileName = DefaultProfile
		profile, _ = s.Profile(DefaultProfile)
	}

	target := copyAllocations(profile.Allocations)
	overrides, err := s.targets.Get(clientID)
	if err != nil {
		return nil, "", err
	}
	for cat, pct := range overrides {
		target[cat] = pct
	}
	return target, profileName, nil
}

// Analyze compares a client's holdings with its target allocation.
func (s *AllocationService) Analyze(clientID string, holdings []models.Holding) (*Analysis, error) {
	target, profile, err := s.TargetAllocation(clientID)
	if err != nil {
		return nil, err
	}
	current := CurrentAllocation(holdings)
	subtotals, total := categoryTotals(holdings)

	rows := Compare(current, target)
	for i := range rows {
		rows[i].DisplayName = s.registry.DisplayName(rows[i].Category)
		rows[i].Color = s.registry.Color(rows[i].Category)
	}

	items := make([]classifier.CategoryValue, 0, len(subtotals))
	for cat, v := range subtotals {
		items = append(items, classifier.CategoryValue{Category: cat, Value: v})
	}

	return &Analysis{
		ClientID:    clientID,
		Profile:     profile,
		TotalValue:  total,
		Target:      target,
		Current:     current,
		Comparison:  rows,
		Suggestions: Suggest(rows, total),
		Exposure:    s.registry.ExposureSummary(items),
	}, nil
}

// AnalyzeClient analyzes the client's latest stored detail rows.
func (s *AllocationService) AnalyzeClient(clientID string) (*Analysis, error) {
	records, err := s.details.ListByClient(clientID, nil)
	if err != nil {
		return nil, err
	}
	holdings := make([]models.Holding, 0, len(records))
	for _, r := range records {
		holdings = append(holdings, models.Holding{
			Ticker:      r.Ticker,
			Description: r.Description,
			Quantity:    r.Quantity,
			Price:       r.Price,
			Value:       r.Value,
			Category:    r.Category,
			Sector:      r.Sector,
		})
	}
	return s.Analyze(clientID, holdings)
}

// ExposureSummary aggregates the client's latest snapshot by exposure tag.
func (s *AllocationService) ExposureSummary(clientID string) ([]classifier.ExposureTotal, error) {
	history, err := s.snapshots.HistoryByClient(clientID)
	if err != nil {
		return nil, err
	}
	items := make([]classifier.CategoryValue, 0)
	if n := len(history); n > 0 {
		latest := history[n-1].Date
		for _, h := range history {
			if h.Date.Equal(latest) {
				items = append(items, classifier.CategoryValue{Category: h.Category, Value: h.Value})
			}
		}
	}
	return s.registry.ExposureSummary(items), nil
}

// SaveProfile validates and stores a custom profile. Percentages must sum
// to 100 within 0.1 points; zero entries are dropped.
func (s *AllocationService) SaveProfile(ctx context.Context, name, createdBy string, allocations map[models.Category]float64) (*models.AllocationProfile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, apperrors.ValidationField("name", "profile name is required")
	}
	if _, ok := BuiltinProfiles[name]; ok {
		return nil, apperrors.Conflict("profile " + name + " is built in")
	}
	if err := s.validateAllocations(allocations); err != nil {
		return nil, err
	}

	var sum float64
	for _, pct := range allocations {
		sum += pct
	}
	if math.Abs(sum-100) > sumTolerance {
		return nil, apperrors.Validationf("allocations sum to %.2f%%, expected 100%%", sum).
			WithDetails(map[string]any{"sum": sum})
	}

	profile := &models.AllocationProfile{Name: name, CreatedBy: createdBy, Allocations: make(map[models.Category]float64)}
	for cat, pct := range allocations {
		if pct > 0 {
			profile.Allocations[cat] = pct
		}
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// DeleteProfile removes a custom profile.
func (s *AllocationService) DeleteProfile(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := BuiltinProfiles[name]; ok {
		return apperrors.Conflict("profile " + name + " is built in")
	}
	return s.profiles.Delete(ctx, name)
}

// SetOverrides replaces the client's per-category overrides.
func (s *AllocationService) SetOverrides(ctx context.Context, clientID string, allocations map[models.Category]float64) error {
	if strings.TrimSpace(clientID) == "" {
		return apperrors.ValidationField("client_id", "client id is required")
	}
	if err := s.validateAllocations(allocations); err != nil {
		return err
	}
	return s.targets.Replace(ctx, clientID, allocations)
}

// ClearOverrides drops every override of a client.
func (s *AllocationService) ClearOverrides(ctx context.Context, clientID string) error {
	return s.targets.Clear(ctx, clientID)
}

// Overrides returns the client's overrides.
func (s *AllocationService) Overrides(clientID string) (map[models.Category]float64, error) {
	return s.targets.Get(clientID)
}

// AssignProfile points a client at an existing profile.
func (s *AllocationService) AssignProfile(ctx context.Context, clientID, profileName string) error {
	profile, err := s.Profile(profileName)
	if err != nil {
		return err
	}
	if profile == nil {
		return apperrors.NotFoundf("profile %s not found", profileName)
	}
	return s.clients.SetProfile(ctx, clientID, profile.Name)
}

// RegisterClient creates or renames a client. An empty profile means the default.
func (s *AllocationService) RegisterClient(ctx context.Context, client *models.Client) error {
	if client.Profile != "" {
		profile, err := s.Profile(client.Profile)
		if err != nil {
			return err
		}
		if profile == nil {
			return apperrors.ValidationField("profile", "unknown profile "+client.Profile)
		}
		client.Profile = profile.Name
	}
	return s.clients.Upsert(ctx, client)
}

// Clients lists registered clients.
func (s *AllocationService) Clients() ([]*models.Client, error) {
	return s.clients.List()
}

func (s *AllocationService) validateAllocations(allocations map[models.Category]float64) error {
	if len(allocations) == 0 {
		return apperrors.Validation("at least one allocation is required")
	}
	for cat, pct := range allocations {
		if !s.registry.IsKnown(cat) {
			return apperrors.ValidationField("category", "unknown category "+string(cat)).
				WithDetails(map[string]any{"field": "category", "valid": s.registry.Categories()})
		}
		if pct < 0 || pct > 100 {
			return apperrors.Validationf("allocation for %s must be between 0 and 100", cat)
		}
	}
	return nil
}

func categoryTotals(holdings []models.Holding) (map[models.Category]float64, float64) {
	subtotals := make(map[models.Category]float64)
	var total float64
	for _, h := range holdings {
		subtotals[h.Category] += h.Value
		total += h.Value
	}
	return subtotals, total
}

func copyAllocations(in map[models.Category]float64) map[models.Category]float64 {
	out := make(map[models.Category]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
