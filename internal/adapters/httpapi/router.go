package httpapi

import (
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
)

// NewRouter creates the chi router with all routes and middleware. Player
// scoping, rate limiting, and auditing live in the mediator chain; the
// router only translates HTTP into commands and queries.
func NewRouter(m mediator.Mediator, db *gorm.DB, logger logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(PlayerScope)

	healthH := NewHealthHandler(db)
	ingestH := NewIngestHandler(m)
	intelH := NewIntelHandler(m)
	adminH := NewAdminHandler(m)

	r.Get("/health", healthH.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/visits", ingestH.RecordVisit)
		r.Post("/observations", ingestH.RecordObservation)
		r.Post("/outcomes", ingestH.RecordOutcome)

		r.Route("/players/{id}", func(r chi.Router) {
			r.Get("/prediction", intelH.GetPrediction)
			r.Get("/heuristics", intelH.GetHeuristics)
			r.Get("/route-plan", intelH.GetRoutePlan)
			r.Get("/memories", intelH.GetMemories)
			r.Get("/exploration", intelH.GetExploration)
			r.Get("/market-history", intelH.GetMarketHistory)

			r.Post("/dna/seed", adminH.SeedPopulation)
			r.Post("/evolve", adminH.Evolve)
			r.Delete("/memories/{recordID}", adminH.ForgetMemory)
			r.Delete("/", adminH.PurgePlayer)
		})
	})

	return r
}
