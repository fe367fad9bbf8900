// Package rest wires the HTTP surface: routing, middleware and handlers.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"flowsync-core/infrastructure/config"
	"flowsync-core/interfaces/http/rest/handlers"
	"flowsync-core/interfaces/http/rest/middleware"
	"flowsync-core/pkg/common"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Sync      *handlers.SyncHandler
	Graph     *handlers.GraphHandler
	Documents *handlers.DocumentHandler
	Audit     *handlers.AuditHandler
}

// NewRouter builds the chi router with the standard middleware stack
func NewRouter(cfg *config.Config, logger *zap.Logger, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer))

		r.Post("/sync/{direction}", h.Sync.Handle)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/validate", h.Graph.Validate)
			r.Post("/edges", h.Graph.CreateEdge)
			r.Post("/nodes/delete", h.Graph.DeleteNode)
			r.Post("/nodes/rename", h.Graph.RenameNode)
			r.Post("/paste", h.Graph.PasteSubgraph)
		})

		r.Route("/rebalance", func(r chi.Router) {
			r.Post("/siblings", h.Graph.RebalanceSiblings)
			r.Post("/conditional", h.Graph.RebalanceConditional)
			r.Post("/variants", h.Graph.RebalanceVariants)
		})

		r.Post("/propagate", h.Graph.PropagateConditionals)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.Documents.List)
			r.Get("/{id}", h.Documents.Get)
			r.Put("/{id}", h.Documents.Put)
			r.Delete("/{id}", h.Documents.Delete)
		})

		r.Get("/audit", h.Audit.List)
	})

	return r
}
