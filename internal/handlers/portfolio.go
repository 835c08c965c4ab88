package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/services"
)

// PortfolioHandler serves clients, profiles and allocation analysis.
type PortfolioHandler struct {
	responder
	deps *Dependencies
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(deps *Dependencies) *PortfolioHandler {
	return &PortfolioHandler{responder: responder{log: deps.Log}, deps: deps}
}

type clientRequest struct {
	ID      string `json:"id" validate:"required,numeric,max=12"`
	Name    string `json:"name" validate:"required,max=120"`
	Profile string `json:"profile" validate:"omitempty,max=40"`
}

type assignProfileRequest struct {
	Profile string `json:"profile" validate:"required,max=40"`
}

type overridesRequest struct {
	Allocations map[models.Category]float64 `json:"allocations" validate:"required,min=1,dive,gte=0,lte=100"`
}

type profileRequest struct {
	Name        string                      `json:"name" validate:"required,max=40"`
	CreatedBy   string                      `json:"created_by" validate:"omitempty,max=80"`
	Allocations map[models.Category]float64 `json:"allocations" validate:"required,min=1,dive,gte=0,lte=100"`
}

// ListClients returns every registered client.
func (h *PortfolioHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.deps.AllocationService.Clients()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, clients)
}

// SaveClient creates or renames a client.
func (h *PortfolioHandler) SaveClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	client := &models.Client{ID: req.ID, Name: req.Name, Profile: req.Profile}
	if err := h.deps.AllocationService.RegisterClient(r.Context(), client); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditClientSaved, "client", client.ID, nil, client)
	h.writeJSON(w, http.StatusOK, client)
}

// AssignProfile points a client at a named profile.
func (h *PortfolioHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDParam(r)
	var req assignProfileRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.deps.AllocationService.AssignProfile(r.Context(), clientID, req.Profile); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditProfileAssigned, "client", clientID, nil, req)
	h.writeJSON(w, http.StatusOK, map[string]string{"client_id": clientID, "profile": req.Profile})
}

// Analysis compares the client's latest holdings against its target.
func (h *PortfolioHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.deps.AllocationService.AnalyzeClient(clientIDParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

// Target returns the client's effective target allocation.
func (h *PortfolioHandler) Target(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDParam(r)
	target, profile, err := h.deps.AllocationService.TargetAllocation(clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	overrides, err := h.deps.AllocationService.Overrides(clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"client_id":  clientID,
		"profile":    profile,
		"target":     target,
		"overridden": len(overrides) > 0,
	})
}

// SetOverrides replaces the client's per-category targets.
func (h *PortfolioHandler) SetOverrides(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDParam(r)
	var req overridesRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	old, err := h.deps.AllocationService.Overrides(clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.deps.AllocationService.SetOverrides(r.Context(), clientID, req.Allocations); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditOverridesSet, "client", clientID, old, req.Allocations)
	h.writeJSON(w, http.StatusOK, map[string]any{"client_id": clientID, "allocations": req.Allocations})
}

// ClearOverrides drops the client's per-category targets.
func (h *PortfolioHandler) ClearOverrides(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDParam(r)
	if err := h.deps.AllocationService.ClearOverrides(r.Context(), clientID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditOverridesCleared, "client", clientID, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Holdings returns one page of the client's stored detail rows.
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	p := repository.PageToPagination(intQuery(r, "page", 1), intQuery(r, "per_page", repository.DefaultPerPage))
	page, err := h.deps.DetailRepo.ListPage(clientIDParam(r), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// Exposure returns the client's domestic/foreign split.
func (h *PortfolioHandler) Exposure(w http.ResponseWriter, r *http.Request) {
	exposure, err := h.deps.AllocationService.ExposureSummary(clientIDParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exposure)
}

// FXRates returns the client's latest stored dollar rates.
func (h *PortfolioHandler) FXRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.deps.CurrencyService.Rates(clientIDParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rates)
}

// ListProfiles returns the built-in and stored profiles.
func (h *PortfolioHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.deps.AllocationService.Profiles()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profiles)
}

// GetProfile returns one profile by name.
func (h *PortfolioHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	profile, err := h.deps.AllocationService.Profile(name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if profile == nil {
		h.writeError(w, r, apperrors.NotFoundf("profile %s not found", name))
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// SaveProfile creates or replaces a custom profile.
func (h *PortfolioHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.deps.AllocationService.SaveProfile(r.Context(), req.Name, req.CreatedBy, req.Allocations)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditProfileSaved, "profile", profile.Name, nil, profile.Allocations)
	h.writeJSON(w, http.StatusCreated, profile)
}

// DeleteProfile removes a custom profile.
func (h *PortfolioHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.deps.AllocationService.DeleteProfile(r.Context(), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditProfileDeleted, "profile", name, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}
