package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/circuit-studio/engine/internal/api/handlers"
	mw "github.com/circuit-studio/engine/internal/api/middleware"
	syncws "github.com/circuit-studio/engine/internal/sync"
)

type Dependencies struct {
	HMACSecret        []byte
	AuthHandler       *handlers.AuthHandler
	ProjectsHandler   *handlers.ProjectsHandler
	CircuitsHandler   *handlers.CircuitsHandler
	RunsHandler       *handlers.RunsHandler
	ValidationHandler *handlers.ValidationHandler
	CatalogHandler    *handlers.CatalogHandler
	SyncHub           *syncws.Hub
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	// Collaborative editing; auth is carried in the session handshake,
	// not a bearer header, so this sits outside the JWT group.
	if dep.SyncHub != nil {
		r.Get("/ws/sync", dep.SyncHub.ServeHTTP)
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
			ar.Post("/refresh", dep.AuthHandler.Refresh)
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			// Projects and their circuit revisions
			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Put("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)

				pr.Post("/{id}/circuit", dep.CircuitsHandler.Save)
				pr.Get("/{id}/circuit", dep.CircuitsHandler.GetCurrent)
				pr.Get("/{id}/circuit/versions", dep.CircuitsHandler.ListVersions)
				pr.Get("/{id}/circuit/versions/{version}", dep.CircuitsHandler.GetVersion)
				pr.Post("/{id}/circuit/versions/{version}/restore", dep.CircuitsHandler.Restore)
				pr.Post("/{id}/circuit/validate", dep.CircuitsHandler.Revalidate)
				pr.Get("/{id}/circuit/netlist", dep.CircuitsHandler.Netlist)

				pr.Post("/{id}/runs", dep.RunsHandler.Create)
				pr.Get("/{id}/runs", dep.RunsHandler.List)
			})

			// Design runs by id
			protected.Get("/runs/{id}", dep.RunsHandler.Get)

			// Inline validation and correction
			protected.Post("/validate", dep.ValidationHandler.Validate)
			protected.Post("/correct", dep.ValidationHandler.Correct)

			// Component catalog
			protected.Get("/catalog/components", dep.CatalogHandler.List)
		})
	})

	return r
}
