package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"portfolio_tracker/internal/middleware"
)

// NewRouter builds the HTTP API.
func NewRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecurityHeaders)

	guard := deps.AdminGuard
	if guard == nil {
		guard = middleware.NewAdminGuard("")
	}

	portfolioHandler := NewPortfolioHandler(deps)
	dashboardHandler := NewDashboardHandler(deps)
	categoryHandler := NewCategoryHandler(deps)
	ingestHandler := NewIngestHandler(deps)
	adminHandler := NewAdminHandler(deps)
	exportHandler := NewExportHandler(deps)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}
		responder{log: deps.Log}.writeJSON(w, code, map[string]string{"status": status})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)

		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitAPI)

			r.Get("/clients", portfolioHandler.ListClients)
			r.Post("/clients", portfolioHandler.SaveClient)
			r.Route("/clients/{clientID}", func(r chi.Router) {
				r.Put("/profile", portfolioHandler.AssignProfile)
				r.Get("/analysis", portfolioHandler.Analysis)
				r.Get("/target", portfolioHandler.Target)
				r.Put("/overrides", portfolioHandler.SetOverrides)
				r.Delete("/overrides", portfolioHandler.ClearOverrides)
				r.Get("/holdings", portfolioHandler.Holdings)
				r.Get("/exposure", portfolioHandler.Exposure)
				r.Get("/fx", portfolioHandler.FXRates)
				r.Get("/evolution", dashboardHandler.Evolution)
				r.Get("/returns", dashboardHandler.Returns)
				r.Get("/history/{category}", dashboardHandler.CategoryHistory)
				r.Get("/export.csv", exportHandler.ExportHoldings)
			})

			r.Get("/profiles", portfolioHandler.ListProfiles)
			r.Post("/profiles", portfolioHandler.SaveProfile)
			r.Get("/profiles/{name}", portfolioHandler.GetProfile)
			r.Delete("/profiles/{name}", portfolioHandler.DeleteProfile)

			r.Get("/summary", dashboardHandler.Summary)
			r.Get("/summary/export.csv", exportHandler.ExportSummary)
			r.Get("/dates", dashboardHandler.Dates)
			r.Get("/dates/{date}", dashboardHandler.ByDate)

			r.Get("/categories", categoryHandler.List)
			r.Post("/categories", categoryHandler.Create)
			r.Delete("/categories/{name}", categoryHandler.Delete)
			r.Get("/sectors", categoryHandler.Sectors)
			r.Post("/reclassify", categoryHandler.Reclassify)

			r.Get("/ingest/runs", ingestHandler.Runs)
		})

		// Uploads parse workbooks and write to the store
		r.With(middleware.LimitUpload).Post("/ingest", ingestHandler.Upload)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.LimitStrict)
			r.Use(guard.RequireAdmin)

			r.Post("/clear", adminHandler.ClearData)
			r.Post("/mappings/reload", adminHandler.ReloadMappings)
			r.Get("/audit", adminHandler.AuditLog)
			r.Get("/audit/{entityType}/{entityID}", adminHandler.AuditLog)
			r.Get("/retries", adminHandler.RetryLog)
		})
	})

	return r
}
