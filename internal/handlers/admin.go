package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio_tracker/internal/services"
)

// AdminHandler serves destructive and diagnostic operations. Its routes
// sit behind the admin guard.
type AdminHandler struct {
	responder
	deps *Dependencies
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(deps *Dependencies) *AdminHandler {
	return &AdminHandler{responder: responder{log: deps.Log}, deps: deps}
}

// ClearData wipes snapshots, history and detail rows. Configuration is kept.
func (h *AdminHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.IngestService.ClearAll(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.deps.CurrencyService != nil {
		h.deps.CurrencyService.ClearCache()
	}
	h.deps.audit(r, services.AuditDataClear, "data", "all", nil, nil)
	h.log.Warn().Str("remote", r.RemoteAddr).Msg("Stored portfolio data cleared")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ReloadMappings re-reads persisted categories and ticker mappings into
// the classification registry.
func (h *AdminHandler) ReloadMappings(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deps.IngestService.LoadPersistedMappings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, counts)
}

// AuditLog returns recent audit entries, or one entity's entries when
// type and id are given in the path.
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 100)

	var (
		entries []*services.AuditEntry
		err     error
	)
	if entityType := chi.URLParam(r, "entityType"); entityType != "" {
		entries, err = h.deps.AuditService.ByEntity(entityType, chi.URLParam(r, "entityID"), limit)
	} else {
		entries, err = h.deps.AuditService.Recent(limit)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// RetryLog returns the most recent rate-limited writes.
func (h *AdminHandler) RetryLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.RetryLogRepo.Recent(intQuery(r, "limit", 100))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}
