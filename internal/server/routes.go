package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Project routes
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.getProject)
			r.Patch("/", s.updateProject)
			r.Delete("/", s.deleteProject)

			// Files
			r.Get("/files", s.getProjectFiles)
			r.Get("/files/{filename}", s.getFileContent)
			r.Put("/files/{filename}", s.updateFile)

			// Live preview
			r.Get("/preview", s.previewProject)
		})
	})

	// AI routes
	r.Route("/ai", func(r chi.Router) {
		r.Post("/create-project-stream", s.createProjectStream)
		r.Get("/tokens", s.getTokenInfo)
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)

	// Health check
	r.Get("/health", s.healthCheck)
}
