package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/services"
)

// CategoryHandler serves the category catalog and ticker corrections.
type CategoryHandler struct {
	responder
	deps *Dependencies
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(deps *Dependencies) *CategoryHandler {
	return &CategoryHandler{responder: responder{log: deps.Log}, deps: deps}
}

// categoryInfo is one entry of the category catalog.
type categoryInfo struct {
	Name        models.Category `json:"name"`
	DisplayName string          `json:"display_name"`
	Color       string          `json:"color"`
	Exposure    models.Exposure `json:"exposure"`
	Custom      bool            `json:"custom"`
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=40"`
	DisplayName string `json:"display_name" validate:"omitempty,max=80"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Exposure    string `json:"exposure" validate:"omitempty,oneof=DOMESTIC FOREIGN"`
}

type reclassifyRequest struct {
	ClientID string  `json:"client_id" validate:"omitempty,numeric"`
	Ticker   string  `json:"ticker" validate:"required,max=20"`
	Category *string `json:"category" validate:"omitempty,max=40"`
	Sector   *string `json:"sector" validate:"omitempty,max=40"`
}

// List returns every active category in display order.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	reg := h.deps.Registry
	custom := make(map[models.Category]bool)
	for _, c := range reg.CustomCategories() {
		custom[c.Name] = true
	}

	out := make([]categoryInfo, 0)
	for _, c := range reg.Categories() {
		out = append(out, categoryInfo{
			Name:        c,
			DisplayName: reg.DisplayName(c),
			Color:       reg.Color(c),
			Exposure:    reg.Exposure(c),
			Custom:      custom[c],
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Create registers a custom category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.deps.IngestService.RegisterCategory(r.Context(), models.CustomCategory{
		Name:        models.Category(req.Name),
		DisplayName: req.DisplayName,
		Color:       req.Color,
		Exposure:    models.Exposure(req.Exposure),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditCategoryCreated, "category", string(created.Name), nil, created)
	h.writeJSON(w, http.StatusCreated, created)
}

// Delete deactivates a custom category. Its history stays readable.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := models.Category(strings.ToUpper(chi.URLParam(r, "name")))
	if err := h.deps.IngestService.DeactivateCategory(r.Context(), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditCategoryDeleted, "category", string(name), nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Sectors lists the sector labels used in detail rows.
func (h *CategoryHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	out := make(map[models.Sector]string)
	for _, s := range []models.Sector{
		models.SectorSemiconductors, models.SectorEnergy, models.SectorBanks, models.SectorMining,
		models.SectorTech, models.SectorConsumer, models.SectorHealthcare, models.SectorRealEstate,
		models.SectorUtilities, models.SectorTelecom, models.SectorIndustrial, models.SectorAgro,
		models.SectorFixedIncome, models.SectorCrypto, models.SectorCommodities, models.SectorETF,
		models.SectorNone,
	} {
		out[s] = classifier.SectorDisplayName(s)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Reclassify corrects a ticker's category and/or sector.
func (h *CategoryHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	var req reclassifyRequest
	if err := h.deps.Validator.Decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var category *models.Category
	if req.Category != nil {
		c := models.Category(strings.ToUpper(strings.TrimSpace(*req.Category)))
		category = &c
	}
	var sector *models.Sector
	if req.Sector != nil {
		s := models.Sector(strings.ToUpper(strings.TrimSpace(*req.Sector)))
		sector = &s
	}

	res, err := h.deps.IngestService.Reclassify(r.Context(), req.ClientID, req.Ticker, category, sector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.audit(r, services.AuditTickerReclassified, "ticker", res.Ticker, nil, res)
	h.writeJSON(w, http.StatusOK, res)
}
