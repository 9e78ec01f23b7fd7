package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/patchgest/internal/fetch"
)

type fetchRequest struct {
	Versions []string `json:"versions"`
}

// handleFetch queues a fetch job. With no versions in the body the
// configured version range is tried.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var versions []fetch.Version
	if len(req.Versions) == 0 {
		versions = fetch.VersionRange(s.cfg.VersionMajorMin, s.cfg.VersionMajorMax, s.cfg.VersionMinorMax)
	} else {
		seen := make(map[fetch.Version]bool)
		for _, raw := range req.Versions {
			v, err := fetch.ParseVersion(raw)
			if err != nil {
				jsonError(w, err.Error(), http.StatusBadRequest)
				return
			}
			if !seen[v] {
				seen[v] = true
				versions = append(versions, v)
			}
		}
		fetch.SortVersionsDesc(versions)
	}
	if len(versions) == 0 {
		jsonError(w, "no versions to fetch", http.StatusBadRequest)
		return
	}

	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.String()
	}

	job, err := s.orchestrator.Submit(names)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   job.Snapshot().Status,
		"versions": names,
		"poll_url": fmt.Sprintf("/api/fetch/%s/status", job.ID),
	})
}

func (s *Server) handleFetchStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
