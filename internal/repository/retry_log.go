package repository

import (
	"context"
	"database/sql"
	"time"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/models"
)

// RetryLogRepository records store writes that needed retries.
type RetryLogRepository struct {
	db *database.DB
}

// NewRetryLogRepository creates a new RetryLogRepository.
func NewRetryLogRepository(db *database.DB) *RetryLogRepository {
	return &RetryLogRepository{db: db}
}

// Record appends one retry log entry.
func (r *RetryLogRepository) Record(ctx context.Context, entry *models.RetryLogEntry) error {
	var errMsg sql.NullString
	if entry.Error != "" {
		errMsg = sql.NullString{String: entry.Error, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO write_retry_log (operation, client_id, attempts, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Operation, entry.ClientID, entry.Attempts, entry.Status, errMsg, time.Now())
	if err != nil {
		return err
	}
	entry.ID, err = result.LastInsertId()
	return err
}

// Recent returns the latest entries, most recent first.
func (r *RetryLogRepository) Recent(limit int) ([]*models.RetryLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, operation, client_id, attempts, status, error, created_at
		FROM write_retry_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.RetryLogEntry, 0)
	for rows.Next() {
		e := &models.RetryLogEntry{}
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Operation, &e.ClientID, &e.Attempts, &e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
