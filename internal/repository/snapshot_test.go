package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create database")
	require.NoError(t, db.RunMigrations(), "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeDate(t *testing.T) {
	want := day("2026-01-10")

	tests := []struct {
		name string
		in   any
	}{
		{"iso string", "2026-01-10"},
		{"iso with spaces", " 2026-01-10 "},
		{"rfc3339", "2026-01-10T15:04:05Z"},
		{"serial int", 46032},
		{"serial float", 46032.75},
		{"serial string", "46032"},
		{"time with clock", time.Date(2026, 1, 10, 18, 30, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDate(tc.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []any{"", "yesterday", struct{}{}} {
		_, err := NormalizeDate(in)
		assert.Error(t, err, "%v", in)
	}
}

func TestSerialDay(t *testing.T) {
	assert.Equal(t, 46023, SerialDay(day("2026-01-01")))
	assert.Equal(t, 46032, SerialDay(day("2026-01-10")))
}

func TestSnapshotRepository_SaveSnapshot_ComputesPctAndVariation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	first, err := repo.SaveSnapshot(ctx, "34491", "LOPEZ JUAN", day("2026-01-01"),
		map[models.Category]float64{models.CategoryGold: 1, models.CategoryUSATech: 2}, 3)
	require.NoError(t, err)
	assert.Nil(t, first.VariationPct)
	assert.Nil(t, first.VariationAbs)

	history, err := repo.HistoryByClient("34491")
	require.NoError(t, err)
	require.Len(t, history, 2)
	pcts := map[models.Category]float64{}
	for _, h := range history {
		pcts[h.Category] = h.Pct
		assert.Equal(t, 3.0, h.PortfolioTotal)
	}
	assert.Equal(t, 33.33, pcts[models.CategoryGold])
	assert.Equal(t, 66.67, pcts[models.CategoryUSATech])

	second, err := repo.SaveSnapshot(ctx, "34491", "LOPEZ JUAN", day("2026-02-01"),
		map[models.Category]float64{models.CategoryGold: 4.5}, 4.5)
	require.NoError(t, err)
	require.NotNil(t, second.VariationPct)
	assert.InDelta(t, 50.0, *second.VariationPct, 1e-9)
	assert.InDelta(t, 1.5, *second.VariationAbs, 1e-9)

	latest, err := repo.LatestSnapshot("34491")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, day("2026-02-01").Equal(latest.Date))
	require.NotNil(t, latest.VariationPct)
	assert.InDelta(t, 50.0, *latest.VariationPct, 1e-9)
}

func TestSnapshotRepository_SaveSnapshot_ReplacesSameDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()
	totals := map[models.Category]float64{models.CategoryGold: 60, models.CategoryCashEquivalent: 40}

	for i := 0; i < 3; i++ {
		_, err := repo.SaveSnapshot(ctx, "34491", "LOPEZ", day("2026-01-10"), totals, 100)
		require.NoError(t, err)
	}

	history, err := repo.HistoryByClient("34491")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	snaps, err := repo.SnapshotsByClient("34491")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestSnapshotRepository_SaveSnapshot_ReplacesLegacyDateForms(t *testing.T) {
	tests := []struct {
		name   string
		stored any
	}{
		{"serial text", "46032"},
		{"serial real", 46032.0},
		{"fractional serial", 46032.75},
		{"serial real text", "46032.0"},
		{"iso with time", "2026-01-10 09:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			db := setupTestDB(t)
			repo := NewSnapshotRepository(db)

			_, err := db.Exec(`INSERT INTO snapshots (date, client_id, client_name, total_value) VALUES (?, '34491', 'LOPEZ', 10)`, tt.stored)
			require.NoError(t, err)
			_, err = db.Exec(`INSERT INTO holdings_history (date, client_id, client_name, category, value, pct, portfolio_total)
				VALUES (?, '34491', 'LOPEZ', 'GOLD', 10, 100, 10)`, tt.stored)
			require.NoError(t, err)

			legacy, err := repo.HistoryByDate(day("2026-01-10"))
			require.NoError(t, err)
			require.Len(t, legacy, 1)

			// Test
			_, err = repo.SaveSnapshot(context.Background(), "34491", "LOPEZ", day("2026-01-10"),
				map[models.Category]float64{models.CategoryGold: 20}, 20)
			require.NoError(t, err)

			// Verify
			snaps, err := repo.SnapshotsByClient("34491")
			require.NoError(t, err)
			require.Len(t, snaps, 1)
			assert.Equal(t, 20.0, snaps[0].TotalValue)

			history, err := repo.HistoryByClient("34491")
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, 20.0, history[0].Value)

			dates, err := repo.AvailableDates()
			require.NoError(t, err)
			require.Len(t, dates, 1)
			assert.True(t, day("2026-01-10").Equal(dates[0]))
		})
	}
}

func TestSnapshotRepository_SaveSnapshot_KeepsNeighbouringSerialDays(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)

	// 46031.9 is Jan 9 and 46033 is Jan 11
	for _, stored := range []any{46031.9, 46033.0} {
		_, err := db.Exec(`INSERT INTO snapshots (date, client_id, client_name, total_value) VALUES (?, '34491', 'LOPEZ', 10)`, stored)
		require.NoError(t, err)
	}

	_, err := repo.SaveSnapshot(context.Background(), "34491", "LOPEZ", day("2026-01-10"),
		map[models.Category]float64{models.CategoryGold: 20}, 20)
	require.NoError(t, err)

	snaps, err := repo.SnapshotsByClient("34491")
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

func TestSnapshotRepository_SaveSnapshot_VariationUsesEarlierDateOnly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	_, err := repo.SaveSnapshot(ctx, "1", "A", day("2026-03-01"), map[models.Category]float64{models.CategoryGold: 200}, 200)
	require.NoError(t, err)

	// Backfilling an older file has nothing earlier to compare against
	older, err := repo.SaveSnapshot(ctx, "1", "A", day("2026-02-01"), map[models.Category]float64{models.CategoryGold: 100}, 100)
	require.NoError(t, err)
	assert.Nil(t, older.VariationPct)
}

func TestSnapshotRepository_SaveSnapshot_ZeroPreviousTotalHasNoVariation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	_, err := repo.SaveSnapshot(ctx, "1", "A", day("2026-01-01"), map[models.Category]float64{}, 0)
	require.NoError(t, err)
	snap, err := repo.SaveSnapshot(ctx, "1", "A", day("2026-01-02"), map[models.Category]float64{models.CategoryGold: 10}, 10)
	require.NoError(t, err)

	assert.Nil(t, snap.VariationPct)
}

func TestSnapshotRepository_LatestPerClient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()
	gold := func(v float64) map[models.Category]float64 { return map[models.Category]float64{models.CategoryGold: v} }

	_, err := repo.SaveSnapshot(ctx, "A", "Alice", day("2026-01-01"), gold(10), 10)
	require.NoError(t, err)
	_, err = repo.SaveSnapshot(ctx, "A", "Alice", day("2026-02-01"), gold(20), 20)
	require.NoError(t, err)
	_, err = repo.SaveSnapshot(ctx, "B", "Bob", day("2026-01-15"), gold(5), 5)
	require.NoError(t, err)

	latest, err := repo.LatestPerClient()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "A", latest[0].ClientID)
	assert.Equal(t, 20.0, latest[0].TotalValue)
	assert.Equal(t, "B", latest[1].ClientID)
}

func TestSnapshotRepository_DatesAndHistoryByDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()
	gold := map[models.Category]float64{models.CategoryGold: 1}

	for _, d := range []string{"2026-01-01", "2026-03-01", "2026-02-01"} {
		_, err := repo.SaveSnapshot(ctx, "A", "Alice", day(d), gold, 1)
		require.NoError(t, err)
	}
	_, err := repo.SaveSnapshot(ctx, "B", "Bob", day("2026-02-01"), gold, 1)
	require.NoError(t, err)

	dates, err := repo.AvailableDates()
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.True(t, day("2026-03-01").Equal(dates[0]))
	assert.True(t, day("2026-01-01").Equal(dates[2]))

	rows, err := repo.HistoryByDate(day("2026-02-01"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	gh, err := repo.CategoryHistory("A", models.CategoryGold)
	require.NoError(t, err)
	require.Len(t, gh, 3)
	assert.True(t, gh[0].Date.Before(gh[1].Date))
	assert.True(t, gh[1].Date.Before(gh[2].Date))
}

func TestSnapshotRepository_ClearAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	details := NewDetailRepository(db)
	ctx := context.Background()

	_, err := repo.SaveSnapshot(ctx, "A", "Alice", day("2026-01-01"), map[models.Category]float64{models.CategoryGold: 1}, 1)
	require.NoError(t, err)
	require.NoError(t, details.Save(ctx, "A", "Alice", day("2026-01-01"),
		[]models.Holding{{Ticker: "GLD", Value: 1, Category: models.CategoryGold}}, models.FXRates{MEP: 1, CCL: 1}))

	require.NoError(t, repo.ClearAll(ctx))

	snaps, err := repo.LatestPerClient()
	require.NoError(t, err)
	assert.Empty(t, snaps)
	rows, err := details.ListByClient("A", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
