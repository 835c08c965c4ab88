package repository

import (
	"database/sql"
	"time"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

// IngestRunRepository handles ingest run bookkeeping.
type IngestRunRepository struct {
	db *database.DB
}

// NewIngestRunRepository creates a new IngestRunRepository.
func NewIngestRunRepository(db *database.DB) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

const ingestRunColumns = `id, status, files_total, files_parsed, clients_ok, clients_retried, clients_failed, error_message, started_at, completed_at, duration_ms`

// Start creates a run with status "started".
func (r *IngestRunRepository) Start(id string, filesTotal int) error {
	_, err := r.db.Exec(`
		INSERT INTO ingest_runs (id, status, files_total, started_at)
		VALUES (?, 'started', ?, ?)
	`, id, filesTotal, time.Now())
	return err
}

// Complete stores the final counters. The status is success, or partial
// when any client failed.
func (r *IngestRunRepository) Complete(run *models.IngestRun) error {
	status := models.RunStatusSuccess
	if run.ClientsFailed > 0 {
		status = models.RunStatusPartial
	}
	run.Status = status
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE ingest_runs
		SET status = ?, files_parsed = ?, clients_ok = ?, clients_retried = ?, clients_failed = ?,
		    completed_at = ?, duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		WHERE id = ?
	`, status, run.FilesParsed, run.ClientsOK, run.ClientsRetried, run.ClientsFailed, now, now, run.ID)
	return err
}

// Fail marks a run as failed with an error message.
func (r *IngestRunRepository) Fail(id string, errorMsg string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE ingest_runs
		SET status = 'error', error_message = ?, completed_at = ?,
		    duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		WHERE id = ?
	`, errorMsg, now, now, id)
	return err
}

// GetByID retrieves a run, or nil when unknown.
func (r *IngestRunRepository) GetByID(id string) (*models.IngestRun, error) {
	row := r.db.QueryRow(`SELECT `+ingestRunColumns+` FROM ingest_runs WHERE id = ?`, id)

	run := &models.IngestRun{}
	err := scanRun(row.Scan, run)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns one page of runs, most recent first.
func (r *IngestRunRepository) List(p Pagination) (PaginatedResult[*models.IngestRun], error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM ingest_runs`).Scan(&total); err != nil {
		return PaginatedResult[*models.IngestRun]{}, err
	}

	rows, err := r.db.Query(`
		SELECT `+ingestRunColumns+`
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, p.Limit, p.Offset)
	if err != nil {
		return PaginatedResult[*models.IngestRun]{}, err
	}
	defer rows.Close()

	runs := make([]*models.IngestRun, 0)
	for rows.Next() {
		run := &models.IngestRun{}
		if err := scanRun(rows.Scan, run); err != nil {
			return PaginatedResult[*models.IngestRun]{}, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResult[*models.IngestRun]{}, err
	}
	return NewPaginatedResult(runs, total, p), nil
}

// DeleteOlderThan removes runs started before the given time.
func (r *IngestRunRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM ingest_runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanRun(scan func(dest ...any) error, run *models.IngestRun) error {
	var errorMsg sql.NullString
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	if err := scan(
		&run.ID,
		&run.Status,
		&run.FilesTotal,
		&run.FilesParsed,
		&run.ClientsOK,
		&run.ClientsRetried,
		&run.ClientsFailed,
		&errorMsg,
		&run.StartedAt,
		&completedAt,
		&durationMs,
	); err != nil {
		return err
	}

	if errorMsg.Valid {
		run.ErrorMessage = errorMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		run.DurationMs = &durationMs.Int64
	}
	return nil
}
