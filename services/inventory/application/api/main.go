package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/hemotrack/pkg/app"
	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/services/inventory/application/handlers"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// UnitRoutes registers inventory endpoints on the provided chi router.
// Every route sits behind session authentication; role checks happen in the
// application services.
func UnitRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(a.SessionStore, a.Logger))
		r.Route("/units", func(r chi.Router) {
			r.Post("/", handlers.NewPostUnitHandler(svcs).Execute)
			r.Get("/", handlers.NewListUnitsHandler(svcs).Execute)
			r.Get("/summary", handlers.NewGetSummaryHandler(svcs).Execute)
			r.Get("/export", handlers.NewGetExportHandler(svcs).Execute)
			r.Route("/{unitID}", func(r chi.Router) {
				r.Get("/", handlers.NewGetUnitHandler(svcs).Execute)
				r.Delete("/", handlers.NewDeleteUnitHandler(svcs).Execute)
				r.Post("/status", handlers.NewPostStatusHandler(svcs).Execute)
				r.Post("/blood-type", handlers.NewPostBloodTypeHandler(svcs).Execute)
				r.Get("/audit", handlers.NewGetAuditHandler(svcs).Execute)
			})
		})
	})
}
