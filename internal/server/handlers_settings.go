package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

// SavePresetRequest is the body of POST /mods/{mod}/presets.
type SavePresetRequest struct {
	Name string `json:"name"`
}

// getSettings handles GET /mods/{mod}/settings
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	var st *modState
	if err := locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		return nil
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.ps)
}

// patchSettings handles PATCH /mods/{mod}/settings
// The body maps block ids to values. Every value is validated before any is
// stored; one bad value rejects the whole patch.
func (s *Server) patchSettings(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid body")
		return
	}
	values := types.NewValueMap()
	if err := json.Unmarshal(raw, values); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	var st *modState
	err = locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		changed, err := settings.SetValues(st.ps, st.doc, values)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		return settings.Save(r.Context(), mod, st.ps, "set", changed)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.ps)
}

// resetSettings handles POST /mods/{mod}/settings/reset
func (s *Server) resetSettings(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	var st *modState
	err := locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		changed := settings.ResetToDefaults(st.ps)
		if len(changed) == 0 {
			return nil
		}
		return settings.Save(r.Context(), mod, st.ps, "reset", changed)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.ps)
}

// listPresets handles GET /mods/{mod}/presets
func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	var names []string
	if err := locked(r.Context(), mod, func(st *modState) error {
		names = settings.PresetNames(st.ps)
		return nil
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// savePreset handles POST /mods/{mod}/presets
func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	var req SavePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	var names []string
	err := locked(r.Context(), mod, func(st *modState) error {
		if err := settings.SavePreset(st.ps, req.Name); err != nil {
			return err
		}
		names = settings.PresetNames(st.ps)
		return settings.Save(r.Context(), mod, st.ps, "preset", nil)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// deletePreset handles DELETE /mods/{mod}/presets/{name}
func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	name := chi.URLParam(r, "name")
	err := locked(r.Context(), mod, func(st *modState) error {
		if err := settings.DeletePreset(st.ps, name); err != nil {
			return err
		}
		return settings.Save(r.Context(), mod, st.ps, "preset", nil)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w)
}

// loadPreset handles POST /mods/{mod}/presets/{name}/load
func (s *Server) loadPreset(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	name := chi.URLParam(r, "name")
	var st *modState
	err := locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		changed, err := settings.LoadPreset(st.ps, name)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		return settings.Save(r.Context(), mod, st.ps, "preset", changed)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.ps)
}
