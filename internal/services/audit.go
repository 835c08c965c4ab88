// Package services provides business logic services.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/logger"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	// Configuration actions
	AuditClientSaved        AuditAction = "client.saved"
	AuditProfileAssigned    AuditAction = "client.profile_assigned"
	AuditOverridesSet       AuditAction = "client.overrides_set"
	AuditOverridesCleared   AuditAction = "client.overrides_cleared"
	AuditProfileSaved       AuditAction = "profile.saved"
	AuditProfileDeleted     AuditAction = "profile.deleted"
	AuditCategoryCreated    AuditAction = "category.created"
	AuditCategoryDeleted    AuditAction = "category.deleted"
	AuditTickerReclassified AuditAction = "ticker.reclassified"

	// Data actions
	AuditIngestRun AuditAction = "ingest.run"
	AuditDataClear AuditAction = "admin.clear"
)

// AuditEntry represents an audit log entry.
type AuditEntry struct {
	ID         int64       `json:"id"`
	Action     AuditAction `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	OldValues  string      `json:"old_values,omitempty"` // JSON
	NewValues  string      `json:"new_values,omitempty"` // JSON
	IPAddress  string      `json:"ip_address"`
	UserAgent  string      `json:"user_agent"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AuditService handles audit logging.
type AuditService struct {
	db  *database.DB
	log zerolog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *database.DB, log zerolog.Logger) *AuditService {
	return &AuditService{db: db, log: logger.Component(log, "audit")}
}

// Log records an audit entry.
func (s *AuditService) Log(ctx context.Context, entry *AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Action, entry.EntityType, entry.EntityID,
		entry.OldValues, entry.NewValues, entry.IPAddress, entry.UserAgent, time.Now())

	if err != nil {
		s.log.Error().Err(err).Str("action", string(entry.Action)).Msg("Failed to write audit log")
		return err
	}
	return nil
}

// LogAction is a convenience method for logging an action with automatic JSON serialization.
// Failures are logged, never returned.
func (s *AuditService) LogAction(ctx context.Context, action AuditAction, entityType, entityID string, oldVal, newVal any, ip, userAgent string) {
	entry := &AuditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}

	if oldVal != nil {
		if data, err := json.Marshal(oldVal); err == nil {
			entry.OldValues = string(data)
		}
	}

	if newVal != nil {
		if data, err := json.Marshal(newVal); err == nil {
			entry.NewValues = string(data)
		}
	}

	_ = s.Log(context.WithoutCancel(ctx), entry)
}

// ByEntity retrieves audit entries for one entity, newest first.
func (s *AuditService) ByEntity(entityType, entityID string, limit int) ([]*AuditEntry, error) {
	return s.query(`WHERE entity_type = ? AND entity_id = ?`, entityType, entityID, limit)
}

// Recent retrieves the most recent audit entries.
func (s *AuditService) Recent(limit int) ([]*AuditEntry, error) {
	return s.query(``, limit)
}

// DeleteOlderThan removes audit entries older than the given duration.
func (s *AuditService) DeleteOlderThan(d time.Duration) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM audit_log WHERE created_at < ?`, time.Now().Add(-d))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *AuditService) query(where string, args ...any) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_log
		`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*AuditEntry, 0)
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID,
			&e.OldValues, &e.NewValues, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
