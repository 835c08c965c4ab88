package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"portfolio_tracker/internal/database"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
)

// ClientRepository handles client database operations.
type ClientRepository struct {
	db *database.DB
}

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db *database.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Upsert creates a client or refreshes its name. The profile of an
// existing client is preserved; a new client gets the given profile.
func (r *ClientRepository) Upsert(ctx context.Context, client *models.Client) error {
	client.ID = strings.TrimSpace(client.ID)
	if client.ID == "" {
		return apperrors.ValidationField("id", "client id is required")
	}
	if client.Profile == "" {
		client.Profile = "moderate"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, profile, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE clients.name END
	`, client.ID, client.Name, client.Profile, time.Now())
	return err
}

// GetByID retrieves a client, or nil when unknown.
func (r *ClientRepository) GetByID(id string) (*models.Client, error) {
	c := &models.Client{}
	err := r.db.QueryRow(`
		SELECT id, name, profile, created_at FROM clients WHERE id = ?
	`, strings.TrimSpace(id)).Scan(&c.ID, &c.Name, &c.Profile, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every client ordered by id.
func (r *ClientRepository) List() ([]*models.Client, error) {
	rows, err := r.db.Query(`SELECT id, name, profile, created_at FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]*models.Client, 0)
	for rows.Next() {
		c := &models.Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Profile, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// SetProfile assigns an allocation profile to a client.
func (r *ClientRepository) SetProfile(ctx context.Context, id, profile string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clients SET profile = ? WHERE id = ?`, profile, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("client")
	}
	return nil
}

// Count returns the number of clients.
func (r *ClientRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM clients`).Scan(&n)
	return n, err
}
