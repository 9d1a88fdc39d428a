package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/config", s.getConfig)

	r.Route("/mods", func(r chi.Router) {
		r.Get("/", s.listMods)

		r.Route("/{mod}", func(r chi.Router) {
			// Document
			r.Get("/document", s.getDocument)
			r.Put("/document", s.putDocument)
			r.Post("/blocks/{id}/rename", s.renameBlock)

			// Player settings
			r.Get("/settings", s.getSettings)
			r.Patch("/settings", s.patchSettings)
			r.Post("/settings/reset", s.resetSettings)

			// Presets
			r.Get("/presets", s.listPresets)
			r.Post("/presets", s.savePreset)
			r.Delete("/presets/{name}", s.deletePreset)
			r.Post("/presets/{name}/load", s.loadPreset)

			r.Post("/apply", s.applyMod)

			// Drift checks
			r.Get("/check", s.checkAll)
			r.Get("/check/missing", s.checkMissing)
			r.Get("/check/extra", s.checkExtra)
			r.Get("/check/nonexistent", s.checkNonexistent)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)
}
