package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/middleware"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/services"
)

// Dependencies holds all handler dependencies.
// This reduces constructor parameter lists and simplifies dependency injection.
type Dependencies struct {
	DB  *database.DB
	Log zerolog.Logger

	// Repositories
	DetailRepo   *repository.DetailRepository
	RetryLogRepo *repository.RetryLogRepository

	// Services
	Registry          *classifier.Registry
	AllocationService *services.AllocationService
	TrackerService    *services.TrackerService
	IngestService     *services.IngestService
	AuditService      *services.AuditService
	CurrencyService   *services.CurrencyService

	// HTTP
	Validator  *middleware.Validator
	AdminGuard *middleware.AdminGuard

	// Upload target and archive directories
	InboxDir     string
	ProcessedDir string
}

// NewDependencies creates a Dependencies container with a no-op logger and
// a default validator. Use the builder methods to set the rest.
func NewDependencies() *Dependencies {
	return &Dependencies{
		Log:       zerolog.Nop(),
		Validator: middleware.NewValidator(),
	}
}

// WithDB sets the database, used by the health check.
func (d *Dependencies) WithDB(db *database.DB) *Dependencies {
	d.DB = db
	return d
}

// WithLogger sets the logger.
func (d *Dependencies) WithLogger(log zerolog.Logger) *Dependencies {
	d.Log = log
	return d
}

// WithDetailRepo sets the detail repository.
func (d *Dependencies) WithDetailRepo(r *repository.DetailRepository) *Dependencies {
	d.DetailRepo = r
	return d
}

// WithRetryLogRepo sets the retry log repository.
func (d *Dependencies) WithRetryLogRepo(r *repository.RetryLogRepository) *Dependencies {
	d.RetryLogRepo = r
	return d
}

// WithRegistry sets the classification registry.
func (d *Dependencies) WithRegistry(r *classifier.Registry) *Dependencies {
	d.Registry = r
	return d
}

// WithAllocationService sets the allocation service.
func (d *Dependencies) WithAllocationService(s *services.AllocationService) *Dependencies {
	d.AllocationService = s
	return d
}

// WithTrackerService sets the tracker service.
func (d *Dependencies) WithTrackerService(s *services.TrackerService) *Dependencies {
	d.TrackerService = s
	return d
}

// WithIngestService sets the ingest service.
func (d *Dependencies) WithIngestService(s *services.IngestService) *Dependencies {
	d.IngestService = s
	return d
}

// WithAuditService sets the audit service.
func (d *Dependencies) WithAuditService(s *services.AuditService) *Dependencies {
	d.AuditService = s
	return d
}

// WithCurrencyService sets the currency service.
func (d *Dependencies) WithCurrencyService(s *services.CurrencyService) *Dependencies {
	d.CurrencyService = s
	return d
}

// WithAdminGuard sets the guard protecting admin routes.
func (d *Dependencies) WithAdminGuard(g *middleware.AdminGuard) *Dependencies {
	d.AdminGuard = g
	return d
}

// WithDirs sets the inbox and processed directories used by uploads.
func (d *Dependencies) WithDirs(inbox, processed string) *Dependencies {
	d.InboxDir = inbox
	d.ProcessedDir = processed
	return d
}

// audit records an admin action when an audit service is configured.
func (d *Dependencies) audit(r *http.Request, action services.AuditAction, entityType, entityID string, oldVal, newVal any) {
	if d.AuditService == nil {
		return
	}
	ip, ua := requestMeta(r)
	d.AuditService.LogAction(r.Context(), action, entityType, entityID, oldVal, newVal, ip, ua)
}
