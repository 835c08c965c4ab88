package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

func TestCompare_RebalanceExample(t *testing.T) {
	current := map[models.Category]float64{"SPY": 50, "MERV": 30, "CASH": 20}
	target := map[models.Category]float64{"SPY": 40, "MERV": 20, "CASH": 10, "GOLD": 30}

	rows := Compare(current, target)

	require.Len(t, rows, 4)
	assert.Equal(t, models.Category("GOLD"), rows[0].Category)
	assert.Equal(t, StatusUnder, rows[0].Status)
	assert.InDelta(t, -30, rows[0].Deviation, 1e-9)
	assert.InDelta(t, -100, rows[0].RelativeDeviation, 1e-9)

	// equal deviations fall back to name order
	assert.Equal(t, []models.Category{"CASH", "MERV", "SPY"},
		[]models.Category{rows[1].Category, rows[2].Category, rows[3].Category})
	for _, row := range rows[1:] {
		assert.Equal(t, StatusOver, row.Status)
		assert.InDelta(t, 10, row.Deviation, 1e-9)
	}
	assert.InDelta(t, 100, rows[1].RelativeDeviation, 1e-9)
	assert.InDelta(t, 25, rows[3].RelativeDeviation, 1e-9)

	suggestions := Suggest(rows, 1_000_000)
	require.Len(t, suggestions, 4)
	assert.Equal(t, ActionBuy, suggestions[0].Action)
	assert.Equal(t, models.Category("GOLD"), suggestions[0].Category)
	assert.InDelta(t, 300000, suggestions[0].Amount, 1e-6)
	for _, s := range suggestions[1:] {
		assert.Equal(t, ActionSell, s.Action)
		assert.InDelta(t, 100000, s.Amount, 1e-6)
	}
}

func TestCompare_UnboundedAndTolerance(t *testing.T) {
	rows := Compare(
		map[models.Category]float64{"HELD": 12, "EDGE": 45},
		map[models.Category]float64{"EDGE": 40, "EMPTY": 0},
	)

	byCat := make(map[models.Category]ComparisonRow)
	for _, r := range rows {
		byCat[r.Category] = r
	}
	require.Len(t, byCat, 3)

	assert.True(t, byCat["HELD"].Unbounded)
	assert.Equal(t, UnboundedDeviation, byCat["HELD"].RelativeDeviation)
	assert.Equal(t, StatusOver, byCat["HELD"].Status)

	assert.Equal(t, StatusOK, byCat["EDGE"].Status, "a deviation of exactly 5 points is within tolerance")

	assert.False(t, byCat["EMPTY"].Unbounded)
	assert.Zero(t, byCat["EMPTY"].RelativeDeviation)
	assert.Equal(t, StatusOK, byCat["EMPTY"].Status)

	assert.Empty(t, Suggest(Compare(nil, nil), 100))
}

func TestCurrentAllocation(t *testing.T) {
	assert.Empty(t, CurrentAllocation(nil))
	assert.Empty(t, CurrentAllocation([]models.Holding{{Category: models.CategoryGold, Value: 0}}))

	got := CurrentAllocation([]models.Holding{
		{Category: models.CategoryGold, Value: 250},
		{Category: models.CategoryUSATech, Value: 500},
		{Category: models.CategoryGold, Value: 250},
	})
	assert.Equal(t, map[models.Category]float64{models.CategoryGold: 50, models.CategoryUSATech: 50}, got)
}

func TestAllocationService_TargetAllocation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	// Test: unknown client gets the default profile
	target, profile, err := env.alloc.TargetAllocation("99999")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, profile)
	assert.Equal(t, BuiltinProfiles[ProfileModerate], target)

	// Setup: aggressive client with one override
	require.NoError(t, env.alloc.RegisterClient(ctx, &models.Client{ID: "34455", Name: "LOPEZ ROJAS FELIPE", Profile: "Aggressive"}))
	require.NoError(t, env.alloc.SetOverrides(ctx, "34455", map[models.Category]float64{models.CategoryGold: 20}))

	target, profile, err = env.alloc.TargetAllocation("34455")
	require.NoError(t, err)
	assert.Equal(t, ProfileAggressive, profile)
	assert.Equal(t, 20.0, target[models.CategoryGold])
	assert.Equal(t, 35.0, target[models.CategoryUSATech])
	assert.Equal(t, 10.0, BuiltinProfiles[ProfileAggressive][models.CategoryGold], "built-in profile must not be mutated")

	// Test: clearing overrides restores the base profile
	require.NoError(t, env.alloc.ClearOverrides(ctx, "34455"))
	target, _, err = env.alloc.TargetAllocation("34455")
	require.NoError(t, err)
	assert.Equal(t, BuiltinProfiles[ProfileAggressive], target)
}

func TestAllocationService_SaveProfile(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.alloc.SaveProfile(ctx, "income", "", map[models.Category]float64{
		models.CategoryPesoFixedIncome: 60, models.CategoryCashEquivalent: 39,
	})
	assert.True(t, apperrors.IsValidation(err), "sum of 99 must be rejected")

	_, err = env.alloc.SaveProfile(ctx, "Moderate", "", map[models.Category]float64{models.CategoryGold: 100})
	assert.True(t, apperrors.IsConflict(err))

	_, err = env.alloc.SaveProfile(ctx, "income", "", map[models.Category]float64{"NOT_A_CATEGORY": 100})
	assert.True(t, apperrors.IsValidation(err))

	profile, err := env.alloc.SaveProfile(ctx, "Income", "advisor", map[models.Category]float64{
		models.CategoryPesoFixedIncome: 60.05, models.CategoryCashEquivalent: 40, models.CategoryGold: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "income", profile.Name)
	assert.NotContains(t, profile.Allocations, models.CategoryGold)

	profiles, err := env.alloc.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	assert.Equal(t, "income", profiles[3].Name)

	// Test: a client can be pointed at it
	require.NoError(t, env.alloc.RegisterClient(ctx, &models.Client{ID: "34462", Name: "LOPEZ ROJAS PEDRO"}))
	require.NoError(t, env.alloc.AssignProfile(ctx, "34462", "income"))
	target, name, err := env.alloc.TargetAllocation("34462")
	require.NoError(t, err)
	assert.Equal(t, "income", name)
	assert.InDelta(t, 60.05, target[models.CategoryPesoFixedIncome], 1e-9)

	// Test: deleting it sends the client back to the default
	require.NoError(t, env.alloc.DeleteProfile(ctx, "income"))
	_, name, err = env.alloc.TargetAllocation("34462")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, name)

	assert.True(t, apperrors.IsConflict(env.alloc.DeleteProfile(ctx, ProfileConservative)))
	assert.True(t, apperrors.IsNotFound(env.alloc.DeleteProfile(ctx, "income")))
}

func TestAllocationService_AssignProfileErrors(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	assert.True(t, apperrors.IsNotFound(env.alloc.AssignProfile(ctx, "34455", "yolo")))
	assert.True(t, apperrors.IsNotFound(env.alloc.AssignProfile(ctx, "34455", ProfileModerate)), "unknown client")

	err := env.alloc.RegisterClient(ctx, &models.Client{ID: "34455", Profile: "yolo"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAllocationService_SetOverrides_Validation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		allocations map[models.Category]float64
	}{
		{"empty", map[models.Category]float64{}},
		{"over 100", map[models.Category]float64{models.CategoryGold: 120}},
		{"negative", map[models.Category]float64{models.CategoryGold: -1}},
		{"unknown category", map[models.Category]float64{"MOON": 10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := env.alloc.SetOverrides(ctx, "34455", tc.allocations)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestAllocationService_Analyze(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	require.NoError(t, env.alloc.RegisterClient(ctx, &models.Client{ID: "242928", Profile: ProfileConservative}))

	analysis, err := env.alloc.Analyze("242928", []models.Holding{
		{Ticker: "SPY", Category: models.CategoryUSATech, Value: 600},
		{Ticker: "GGAL", Category: models.CategoryArgentinaEquity, Value: 400},
	})
	require.NoError(t, err)

	assert.Equal(t, ProfileConservative, analysis.Profile)
	assert.Equal(t, 1000.0, analysis.TotalValue)
	assert.Equal(t, 60.0, analysis.Current[models.CategoryUSATech])

	// USA_TECH +50, ARGENTINA_EQUITY +40 (unbounded), CASH -40, FIXED -35, GOLD -15
	require.Len(t, analysis.Comparison, 5)
	first := analysis.Comparison[0]
	assert.Equal(t, models.CategoryUSATech, first.Category)
	assert.Equal(t, env.registry.DisplayName(models.CategoryUSATech), first.DisplayName)
	assert.NotEmpty(t, first.Color)
	assert.Len(t, analysis.Suggestions, 5)

	require.Len(t, analysis.Exposure, 2)
	assert.Equal(t, models.ExposureDomestic, analysis.Exposure[0].Exposure)
	assert.Equal(t, 400.0, analysis.Exposure[0].Value)
	assert.Equal(t, 600.0, analysis.Exposure[1].Value)
}

func TestAllocationService_ExposureSummary(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.snapshots.SaveSnapshot(ctx, "34455", "FELIPE", day("2026-01-01"),
		map[models.Category]float64{models.CategoryGold: 1000}, 1000)
	require.NoError(t, err)
	_, err = env.snapshots.SaveSnapshot(ctx, "34455", "FELIPE", day("2026-02-01"),
		map[models.Category]float64{models.CategoryUSATech: 750, models.CategoryCashEquivalent: 250}, 1000)
	require.NoError(t, err)

	summary, err := env.alloc.ExposureSummary("34455")
	require.NoError(t, err)

	require.Len(t, summary, 2)
	assert.Equal(t, models.ExposureDomestic, summary[0].Exposure)
	assert.InDelta(t, 25, summary[0].Pct, 1e-9)
	assert.Equal(t, models.ExposureForeign, summary[1].Exposure)
	assert.InDelta(t, 750, summary[1].Value, 1e-9)

	empty, err := env.alloc.ExposureSummary("nobody")
	require.NoError(t, err)
	assert.Zero(t, empty[0].Value)
}
