package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docintel/internal/parser"
	"github.com/dgallion1/docintel/internal/pipeline"
	"github.com/dgallion1/docintel/internal/sectionindex"
)

// handleAnalyze accepts a multipart upload of documents plus the persona
// and job-to-be-done, and queues an analysis job.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	maxFiles := int64(s.cfg.MaxFilesPerJob)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*maxFiles+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	persona := strings.TrimSpace(r.FormValue("persona"))
	if persona == "" {
		jsonError(w, "persona is required", http.StatusBadRequest)
		return
	}
	job := strings.TrimSpace(r.FormValue("job_to_be_done"))
	if job == "" {
		jsonError(w, "job_to_be_done is required", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.MaxFilesPerJob {
		jsonError(w, fmt.Sprintf("too many files (max %d)", s.cfg.MaxFilesPerJob), http.StatusBadRequest)
		return
	}

	inputs := make([]pipeline.Input, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open "+filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			jsonError(w, "failed to read "+filename, http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("%s exceeds max size (%d bytes)", filename, s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		inputs = append(inputs, pipeline.Input{Name: filename, Data: data})
	}

	j := pipeline.NewJob(persona, job, inputs)
	if err := s.orchestrator.Submit(j); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("analysis queued", "job_id", j.ID, "documents", len(inputs))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     j.ID,
		"status":     pipeline.StatusQueued,
		"documents":  len(inputs),
		"poll_url":   fmt.Sprintf("/api/analyze/%s/status", j.ID),
		"result_url": fmt.Sprintf("/api/analyze/%s/result", j.ID),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleResult returns the analysis document once the job has finished.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	if !snap.Status.Done() {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	res := job.Result()
	if res == nil {
		jsonError(w, "job produced no result", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSearch runs a full-text query over the job's scored sections.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	idx := job.Index()
	if idx == nil {
		jsonError(w, "search index not ready", http.StatusConflict)
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, total, err := idx.Search(q, limit)
	if errors.Is(err, sectionindex.ErrEmptyQuery) {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      q,
		"total_hits": total,
		"results":    hits,
	})
}

func (s *Server) jobFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
