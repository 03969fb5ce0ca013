package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"painel/pkg/session"
)

// GetRouter initialises a new http router and applies all routes
func GetRouter(reg *session.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	return applyRoutes(r, &handler{registry: reg})
}

func applyRoutes(r chi.Router, h *handler) chi.Router {
	r.Get("/healthz", getHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.closeSession)
			r.Post("/refresh", h.refresh)
			r.Post("/access", h.recordAccess)
			r.Get("/datasets", h.listDatasets)
			r.Get("/datasets/{key}", h.getDataset)
			r.Post("/datasets/{key}/rows", h.writeRows)
			r.Post("/datasets/{key}/requests", h.submitRequest)
			r.Put("/datasets/{key}/targets", h.saveTargets)
		})
	})

	return r
}
