package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docintel/internal/pathstore"
)

// handleListAnalyses lists the analyses persisted in pathstore.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	ps := s.orchestrator.PathstoreClient()
	if ps == nil {
		jsonError(w, "result store not configured", http.StatusServiceUnavailable)
		return
	}

	children, err := ps.ListChildren(r.Context(), "analyses", 500)
	if err != nil {
		jsonError(w, "failed to list analyses: "+err.Error(), http.StatusBadGateway)
		return
	}

	// Only the meta nodes describe an analysis.
	analyses := []map[string]any{}
	for _, child := range children {
		if !strings.HasSuffix(child.Key, ".meta") && !strings.HasSuffix(child.Key, "/meta") {
			continue
		}
		analyses = append(analyses, map[string]any{
			"job_id": analysisID(child.Key),
			"meta":   child.Value,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}

// handleGetAnalysis reads a persisted analysis back from pathstore: its meta
// node and the ranked sections stored under it.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	ps := s.orchestrator.PathstoreClient()
	if ps == nil {
		jsonError(w, "result store not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	meta, err := ps.GetNode(r.Context(), pathstore.AnalysisKey(jobID, "meta"))
	if err != nil {
		jsonError(w, "failed to read analysis: "+err.Error(), http.StatusBadGateway)
		return
	}
	if meta == nil {
		jsonError(w, "analysis not found", http.StatusNotFound)
		return
	}

	sections, err := ps.ListChildren(r.Context(), pathstore.AnalysisKey(jobID, "sections"), 0)
	if err != nil {
		jsonError(w, "failed to read sections: "+err.Error(), http.StatusBadGateway)
		return
	}
	values := make([]any, 0, len(sections))
	for _, n := range sections {
		values = append(values, n.Value)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   jobID,
		"meta":     meta.Value,
		"sections": values,
	})
}

// handleDeleteAnalysis forgets a job and removes its stored nodes.
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	removed := s.orchestrator.DeleteJob(jobID)

	storeDeleted := false
	if ps := s.orchestrator.PathstoreClient(); ps != nil {
		if err := ps.DeleteNode(r.Context(), pathstore.AnalysisKey(jobID), true); err != nil {
			s.log.Warn("stored analysis delete failed", "job_id", jobID, "error", err)
		} else {
			storeDeleted = true
		}
	}

	if !removed && !storeDeleted {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        jobID,
		"job_removed":   removed,
		"store_deleted": storeDeleted,
	})
}

// analysisID extracts the job ID from a key such as analyses.{id}.meta.
func analysisID(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '.' || r == '/' })
	if len(parts) >= 3 {
		return parts[len(parts)-2]
	}
	return key
}
