package server

import (
	"net/http"
	"strconv"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/reconcile"
	"github.com/flexmod/flexmod/pkg/types"
)

// applyMod handles POST /mods/{mod}/apply
// With ?dryRun=true nothing is written and the report carries the diffs.
func (s *Server) applyMod(w http.ResponseWriter, r *http.Request) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return
	}

	opts := []apply.Option{apply.WithBus(s.bus)}
	if v := r.URL.Query().Get("dryRun"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "dryRun must be a boolean")
			return
		}
		if dryRun {
			opts = append(opts, apply.WithDryRun())
		}
	}

	report, err := apply.ApplyMod(r.Context(), mod, opts...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// loadDocument reads the document of the mod under its lock. Checks only
// read target files, so the lock is released before they run.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*project.Mod, *types.Document) {
	mod := s.modFromRequest(w, r)
	if mod == nil {
		return nil, nil
	}
	var doc *types.Document
	err := mod.Exclusive(func() error {
		var err error
		doc, _, err = document.Load(r.Context(), mod)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return nil, nil
	}
	return mod, doc
}

// checkAll handles GET /mods/{mod}/check
func (s *Server) checkAll(w http.ResponseWriter, r *http.Request) {
	mod, doc := s.loadDocument(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, reconcile.Run(doc, mod, s.appConfig.Patterns(), s.bus))
}

// checkMissing handles GET /mods/{mod}/check/missing
func (s *Server) checkMissing(w http.ResponseWriter, r *http.Request) {
	mod, doc := s.loadDocument(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, reconcile.CheckMissing(doc, mod))
}

// checkExtra handles GET /mods/{mod}/check/extra
func (s *Server) checkExtra(w http.ResponseWriter, r *http.Request) {
	mod, doc := s.loadDocument(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, reconcile.CheckExtra(doc, mod, s.appConfig.Patterns()))
}

// checkNonexistent handles GET /mods/{mod}/check/nonexistent
func (s *Server) checkNonexistent(w http.ResponseWriter, r *http.Request) {
	mod, doc := s.loadDocument(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, reconcile.CheckNonexistent(doc, mod))
}
