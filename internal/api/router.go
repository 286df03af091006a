package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apihandler "github.com/maraichr/pipescope/internal/api/handler"
	apimw "github.com/maraichr/pipescope/internal/api/middleware"
)

// RouterDeps holds the router's dependencies. Producer and Graph are optional.
type RouterDeps struct {
	DB       apihandler.Pinger
	Store    apihandler.RunStore
	Producer apihandler.Enqueuer
	Graph    apihandler.TemplateRanker
}

func NewRouter(logger *slog.Logger, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS)
	r.Use(chimw.Recoverer)

	health := apihandler.NewHealthHandler(deps.DB)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	runs := apihandler.NewRunHandler(logger, deps.Store, deps.Producer, deps.Graph)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runs.List)
			r.Post("/", runs.Create)
			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", runs.Get)
				r.Get("/records", runs.Records)
				r.Get("/errors", runs.Errors)
				r.Get("/templates", runs.Templates)
			})
		})
		r.Get("/templates/top", runs.TopTemplates)
	})

	return r
}
