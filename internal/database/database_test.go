package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesConnection(t *testing.T) {
	// Setup: use temporary directory
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	// Test: create new database connection
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	// Verify: database file exists and answers
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, db.Ping())
}

func TestNew_InvalidPath_ReturnsError(t *testing.T) {
	// A regular file where a directory is expected cannot be created, even as root.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := New(filepath.Join(blocker, "sub", "test.db"))
	assert.Error(t, err)
}

func TestRunMigrations_CreatesAllTables(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RunMigrations())

	expectedTables := []string{
		"clients",
		"custom_profiles",
		"custom_allocations",
		"custom_categories",
		"ticker_mappings",
		"sector_mappings",
		"holdings_history",
		"snapshots",
		"detail_records",
		"ingest_runs",
		"write_retry_log",
		"audit_log",
	}

	for _, table := range expectedTables {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&exists)
		require.NoError(t, err, table)
		assert.Equal(t, 1, exists, "table %s does not exist", table)
	}
}

func TestRunMigrations_CreatesIndexes(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RunMigrations())

	expectedIndexes := []string{
		"idx_history_client_date",
		"idx_history_date",
		"idx_snapshots_client_date",
		"idx_detail_client_date",
		"idx_detail_ticker",
		"idx_ingest_runs_started",
		"idx_audit_log_created",
	}

	for _, index := range expectedIndexes {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, index).Scan(&exists)
		require.NoError(t, err, index)
		assert.Equal(t, 1, exists, "index %s does not exist", index)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// Test: run migrations multiple times
	for i := 0; i < 3; i++ {
		require.NoError(t, db.RunMigrations(), "iteration %d", i+1)
	}

	// Verify: still the same set of tables
	var tableCount int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`).Scan(&tableCount)
	require.NoError(t, err)
	assert.Equal(t, 12, tableCount)
}

func TestDB_Close(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	// Test: close database
	require.NoError(t, db.Close())

	// Verify: operations fail after close
	assert.Error(t, db.Ping())
}

func TestDB_Exec_InsertAndQuery(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RunMigrations())

	// Test: insert a client with the default profile
	_, err := db.Exec(`INSERT INTO clients (id, name) VALUES (?, ?)`, "34491", "LOPEZ JUAN")
	require.NoError(t, err)

	// Verify: defaults applied
	var name, profile string
	err = db.QueryRow(`SELECT name, profile FROM clients WHERE id = ?`, "34491").Scan(&name, &profile)
	require.NoError(t, err)
	assert.Equal(t, "LOPEZ JUAN", name)
	assert.Equal(t, "moderate", profile)
}

func TestDB_PrimaryKeyConstraints(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RunMigrations())

	_, err := db.Exec(`INSERT INTO custom_allocations (client_id, category, target_pct) VALUES ('1', 'GOLD', 10)`)
	require.NoError(t, err)

	// Test: duplicate (client, category) is rejected
	_, err = db.Exec(`INSERT INTO custom_allocations (client_id, category, target_pct) VALUES ('1', 'GOLD', 20)`)
	assert.Error(t, err)
}
