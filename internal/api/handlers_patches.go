package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"github.com/dgallion1/patchgest/internal/render"
	"github.com/dgallion1/patchgest/internal/store"
)

func (s *Server) handleListPatches(w http.ResponseWriter, r *http.Request) {
	patches, err := s.store.ListPatches(r.Context())
	if err != nil {
		s.log.Error("list patches failed", "error", err)
		jsonError(w, "failed to list patches", http.StatusInternalServerError)
		return
	}
	if patches == nil {
		patches = []store.Patch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patches": patches})
}

func (s *Server) handleGetPatch(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupPatch(w, r)
	if !ok {
		return
	}
	resp := map[string]any{"patch": p}
	if r.URL.Query().Get("raw") == "true" {
		resp["raw_text"] = p.RawText
		resp["raw_html"] = p.RawHTML
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.SectionFilter{
		Category: patchdoc.Category(q.Get("category")),
		Size:     patchdoc.Size(q.Get("size")),
	}
	if f.Category != "" && !f.Category.Valid() {
		jsonError(w, "unknown category: "+string(f.Category), http.StatusBadRequest)
		return
	}
	if f.Size != "" && !f.Size.Valid() {
		jsonError(w, "unknown size: "+string(f.Size), http.StatusBadRequest)
		return
	}

	p, ok := s.lookupPatch(w, r)
	if !ok {
		return
	}
	blocks, err := s.store.Sections(r.Context(), p.Version, f)
	if err != nil {
		s.log.Error("load sections failed", "version", p.Version, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  p.Version,
		"sections": blocks,
	})
}

// handleBuckets returns the per-category text view of a stored patch, as
// JSON by default or as a rendered digest with ?format=html|markdown.
func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupPatch(w, r)
	if !ok {
		return
	}
	blocks, err := s.store.Sections(r.Context(), p.Version, store.SectionFilter{})
	if err != nil {
		s.log.Error("load sections failed", "version", p.Version, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}

	title := "Patch " + p.Version
	switch r.URL.Query().Get("format") {
	case "html":
		out, err := render.HTML(title, blocks)
		if err != nil {
			s.log.Error("render failed", "version", p.Version, "error", err)
			jsonError(w, "failed to render", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(out))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(render.Markdown(title, blocks)))
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{
			"version": p.Version,
			"buckets": parser.BucketView(blocks),
		})
	default:
		jsonError(w, "unknown format", http.StatusBadRequest)
	}
}

// lookupPatch loads the patch named in the URL, writing the error response
// itself when it cannot.
func (s *Server) lookupPatch(w http.ResponseWriter, r *http.Request) (*store.Patch, bool) {
	version := chi.URLParam(r, "version")
	p, err := s.store.GetPatch(r.Context(), version)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "patch not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("get patch failed", "version", version, "error", err)
		jsonError(w, "failed to load patch", http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}
