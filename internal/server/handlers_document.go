package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/model"
	"github.com/flexmod/flexmod/internal/settings"
)

// RenameBlockRequest is the body of POST /mods/{mod}/blocks/{id}/rename.
type RenameBlockRequest struct {
	NewID string `json:"newId"`
}

// getDocument handles GET /mods/{mod}/document
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}

	var st *modState
	err := locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.doc)
}

// putDocument handles PUT /mods/{mod}/document
// The document replaces the stored one after structural repair. Blocks that
// break the id or payload rules reject the whole document.
func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid body")
		return
	}
	doc, err := document.Decode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	document.ValidateAndFix(doc)
	if problems := model.ValidateDocument(doc); len(problems) > 0 {
		writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest, "document has invalid blocks",
			map[string]any{"problems": problems})
		return
	}

	err = mod.Exclusive(func() error {
		if err := document.Save(r.Context(), mod, doc); err != nil {
			return err
		}
		_, _, err := settings.LoadOrCreate(r.Context(), mod, doc)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// renameBlock handles POST /mods/{mod}/blocks/{id}/rename
// The selected value, the default and every preset entry follow the block
// to its new id.
func (s *Server) renameBlock(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}
	oldID := chi.URLParam(r, "id")

	var req RenameBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	var st *modState
	err := locked(r.Context(), mod, func(loaded *modState) error {
		st = loaded
		if err := model.RenameBlock(st.doc, oldID, req.NewID); err != nil {
			return err
		}
		if oldID == req.NewID {
			return nil
		}
		settings.RenameID(st.ps, oldID, req.NewID)
		if err := document.Save(r.Context(), mod, st.doc); err != nil {
			return err
		}
		return settings.Save(r.Context(), mod, st.ps, "rename", []string{oldID, req.NewID})
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.doc.Block(req.NewID))
}
