package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

// getConfig handles GET /config
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.appConfig)
}

// listMods handles GET /mods
func (s *Server) listMods(w http.ResponseWriter, r *http.Request) {
	mods, err := s.mods.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

// modFromRequest opens the mod named by the {mod} URL parameter. It writes
// the error response itself and returns nil when the mod does not exist.
func (s *Server) modFromRequest(w http.ResponseWriter, r *http.Request) *project.Mod {
	mod, err := s.mods.Get(r.Context(), chi.URLParam(r, "mod"))
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	return mod
}

// modState is the document and settings of a mod as loaded under its lock.
type modState struct {
	doc *types.Document
	ps  *types.PlayerSettings
}

func loadState(ctx context.Context, mod *project.Mod) (*modState, error) {
	doc, _, err := document.Load(ctx, mod)
	if err != nil {
		return nil, err
	}
	ps, _, err := settings.LoadOrCreate(ctx, mod, doc)
	if err != nil {
		return nil, err
	}
	return &modState{doc: doc, ps: ps}, nil
}

// locked loads the state of mod and runs fn while holding the mod's lock,
// so that no apply pass sees a half-written update.
func locked(ctx context.Context, mod *project.Mod, fn func(st *modState) error) error {
	return mod.Exclusive(func() error {
		st, err := loadState(ctx, mod)
		if err != nil {
			return err
		}
		return fn(st)
	})
}
