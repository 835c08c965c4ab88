package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/ingest"
	"portfolio_tracker/internal/repository"
)

type testEnv struct {
	db        *database.DB
	registry  *classifier.Registry
	snapshots *repository.SnapshotRepository
	details   *repository.DetailRepository
	clients   *repository.ClientRepository
	runs      *repository.IngestRunRepository
	mappings  *repository.MappingRepository
	alloc     *AllocationService
	tracker   *TrackerService
	ingest    *IngestService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create database")
	require.NoError(t, db.RunMigrations(), "failed to run migrations")
	t.Cleanup(func() {
		db.Close()
	})

	env := &testEnv{
		db:        db,
		registry:  classifier.NewRegistry(),
		snapshots: repository.NewSnapshotRepository(db),
		details:   repository.NewDetailRepository(db),
		clients:   repository.NewClientRepository(db),
		runs:      repository.NewIngestRunRepository(db),
		mappings:  repository.NewMappingRepository(db),
	}
	log := zerolog.Nop()

	env.alloc = NewAllocationService(env.registry, env.clients,
		repository.NewProfileRepository(db), repository.NewAllocationTargetRepository(db),
		env.details, env.snapshots)
	env.tracker = NewTrackerService(env.snapshots)

	writer := repository.NewThrottledWriter(repository.NewRetryLogRepository(db), repository.WriterConfig{}, log)
	env.ingest = NewIngestService(
		ingest.NewParser(env.registry, 1150, log),
		env.registry,
		writer,
		IngestStores{
			Snapshots:  env.snapshots,
			Details:    env.details,
			Clients:    env.clients,
			Runs:       env.runs,
			Mappings:   env.mappings,
			Categories: repository.NewCategoryRepository(db),
		},
		0,
		log,
	)
	env.ingest.now = func() time.Time { return day("2026-02-01").Add(15 * time.Hour) }
	return env
}

func day(s string) time.Time {
	t, err := time.Parse(repository.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// writeExport saves a single-sheet workbook.
func writeExport(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func exportRows() [][]any {
	return [][]any{
		{"Ticker", "Descripción", "Cantidad", "Valorización"},
		{"SPY", "SPDR S&P 500", 10, 600000},
		{"GGAL", "Grupo Financiero Galicia", 100, 400000},
	}
}

func writeBroken(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))
	return path
}
