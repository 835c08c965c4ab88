package database

// SQL migrations for the portfolio tracker database.
// All migrations use IF NOT EXISTS to be idempotent.
//
// Dates that identify a snapshot are stored as ISO text (YYYY-MM-DD).
// Rows imported from older spreadsheets may still carry a serial day
// count in the same column; the repository layer matches both forms.

const migrationClients = `
CREATE TABLE IF NOT EXISTS clients (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    profile TEXT NOT NULL DEFAULT 'moderate',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationCustomProfiles = `
CREATE TABLE IF NOT EXISTS custom_profiles (
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    target_pct REAL NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (name, category)
);
`

const migrationCustomAllocations = `
CREATE TABLE IF NOT EXISTS custom_allocations (
    client_id TEXT NOT NULL,
    category TEXT NOT NULL,
    target_pct REAL NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (client_id, category)
);
`

const migrationCustomCategories = `
CREATE TABLE IF NOT EXISTS custom_categories (
    name TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '#808080',
    exposure TEXT NOT NULL DEFAULT 'DOMESTIC',
    active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationTickerMappings = `
CREATE TABLE IF NOT EXISTS ticker_mappings (
    ticker TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationSectorMappings = `
CREATE TABLE IF NOT EXISTS sector_mappings (
    ticker TEXT PRIMARY KEY,
    sector TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationHoldingsHistory = `
CREATE TABLE IF NOT EXISTS holdings_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    client_id TEXT NOT NULL,
    client_name TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    value REAL NOT NULL,
    pct REAL NOT NULL,
    portfolio_total REAL NOT NULL
);
`

const migrationSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    client_id TEXT NOT NULL,
    client_name TEXT NOT NULL DEFAULT '',
    total_value REAL NOT NULL,
    variation_pct REAL,
    variation_abs REAL
);
`

// Column order is the versioned detail contract; append only.
const migrationDetailRecords = `
CREATE TABLE IF NOT EXISTS detail_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    client_id TEXT NOT NULL,
    client_name TEXT NOT NULL DEFAULT '',
    ticker TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    quantity REAL NOT NULL DEFAULT 0,
    price REAL NOT NULL DEFAULT 0,
    value REAL NOT NULL DEFAULT 0,
    category TEXT NOT NULL,
    sector TEXT NOT NULL DEFAULT 'N/A',
    fx_mep REAL NOT NULL DEFAULT 0,
    fx_ccl REAL NOT NULL DEFAULT 0
);
`

const migrationIngestRuns = `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL DEFAULT 'started',
    files_total INTEGER NOT NULL DEFAULT 0,
    files_parsed INTEGER NOT NULL DEFAULT 0,
    clients_ok INTEGER NOT NULL DEFAULT 0,
    clients_retried INTEGER NOT NULL DEFAULT 0,
    clients_failed INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    duration_ms INTEGER
);
`

const migrationWriteRetryLog = `
CREATE TABLE IF NOT EXISTS write_retry_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,
    client_id TEXT NOT NULL DEFAULT '',
    attempts INTEGER NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL DEFAULT '',
    old_values TEXT NOT NULL DEFAULT '',
    new_values TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_history_client_date ON holdings_history(client_id, date);
CREATE INDEX IF NOT EXISTS idx_history_date ON holdings_history(date);
CREATE INDEX IF NOT EXISTS idx_snapshots_client_date ON snapshots(client_id, date);
CREATE INDEX IF NOT EXISTS idx_detail_client_date ON detail_records(client_id, date);
CREATE INDEX IF NOT EXISTS idx_detail_ticker ON detail_records(ticker);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
`
