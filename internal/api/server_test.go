package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/pathstore"
	"github.com/dgallion1/docintel/internal/pipeline"
)

const (
	testKey       = "test-key"
	studyMarkdown = "# Introduction\n\nThis study reviews research methodology findings in computational biology and offers a careful literature review of recent benchmark datasets. The most important finding is that graph models improve protein structure prediction accuracy across many public datasets.\n"
)

func testServer(t *testing.T, start bool) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	return testServerWithStore(t, start, nil)
}

func testServerWithStore(t *testing.T, start bool, sink *pathstore.Client) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		DocintelAPIKey:     testKey,
		WorkerCount:        1,
		MaxQueueSize:       4,
		MaxConcurrentDocs:  2,
		MaxConcurrentStore: 1,
		MaxUploadBytes:     1 << 20,
		MaxFilesPerJob:     3,
		JobTTL:             time.Hour,
		StatsWindow:        time.Hour,
	}
	lex, err := lexicon.Default()
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	analyzer := pipeline.NewAnalyzer(pipeline.DefaultTuning(), lex, pipeline.Options{MaxConcurrentDocs: cfg.MaxConcurrentDocs}, log)
	orch := pipeline.NewOrchestrator(cfg, analyzer, sink, log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	return NewServer(orch, log, cfg), orch
}

type upload struct {
	name    string
	content string
}

func analyzeRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(f.content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authGet(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	s, _ := testServer(t, false)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestAuth(t *testing.T) {
	s, _ := testServer(t, false)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats/latency", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if rec := serve(s, req); rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAnalyze_Validation(t *testing.T) {
	s, _ := testServer(t, false)
	full := map[string]string{"persona": "Researcher", "job_to_be_done": "Literature review"}
	tests := []struct {
		name   string
		fields map[string]string
		files  []upload
		want   int
	}{
		{"missing persona", map[string]string{"job_to_be_done": "x"}, []upload{{"a.md", "x"}}, http.StatusBadRequest},
		{"missing job", map[string]string{"persona": "x"}, []upload{{"a.md", "x"}}, http.StatusBadRequest},
		{"no files", full, nil, http.StatusBadRequest},
		{"unsupported type", full, []upload{{"a.exe", "x"}}, http.StatusBadRequest},
		{"too many files", full, []upload{{"a.md", "x"}, {"b.md", "x"}, {"c.md", "x"}, {"d.md", "x"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, analyzeRequest(t, tt.fields, tt.files...))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	s, _ := testServer(t, true)
	rec := serve(s, analyzeRequest(t,
		map[string]string{"persona": "PhD Researcher in Computational Biology", "job_to_be_done": "Prepare a literature review"},
		upload{"study.md", studyMarkdown},
	))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)
	if accepted.JobID == "" {
		t.Fatal("expected a job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var snap pipeline.JobSnapshot
		decode(t, serve(s, authGet(accepted.PollURL)), &snap)
		if snap.Status.Done() {
			if snap.Status != pipeline.StatusCompleted {
				t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = serve(s, authGet("/api/analyze/"+accepted.JobID+"/result"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res pipeline.Result
	decode(t, rec, &res)
	if len(res.ExtractedSections) != 1 || res.ExtractedSections[0].SectionTitle != "Introduction" {
		t.Errorf("unexpected sections %+v", res.ExtractedSections)
	}
	if res.Metadata.InputDocuments[0] != "study.md" {
		t.Errorf("unexpected input documents %v", res.Metadata.InputDocuments)
	}

	rec = serve(s, authGet("/api/analyze/"+accepted.JobID+"/search?q=protein"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var search struct {
		TotalHits int `json:"total_hits"`
	}
	decode(t, rec, &search)
	if search.TotalHits != 1 {
		t.Errorf("expected 1 hit, got %d", search.TotalHits)
	}
	if rec := serve(s, authGet("/api/analyze/"+accepted.JobID+"/search")); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing query, got %d", rec.Code)
	}

	var stats struct {
		Stats pipeline.StatsSnapshot `json:"stats"`
	}
	decode(t, serve(s, authGet("/api/stats/latency")), &stats)
	if stats.Stats.Count != 1 {
		t.Errorf("expected one recorded run, got %d", stats.Stats.Count)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/analyze/"+accepted.JobID, nil)
	del.Header.Set("Authorization", "Bearer "+testKey)
	if rec := serve(s, del); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", rec.Code)
	}
	if rec := serve(s, authGet(accepted.PollURL)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestResult_NotReady(t *testing.T) {
	s, orch := testServer(t, false)
	job := pipeline.NewJob("p", "j", nil)
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}
	if rec := serve(s, authGet("/api/analyze/"+job.ID+"/result")); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a queued job, got %d", rec.Code)
	}
	if rec := serve(s, authGet("/api/analyze/"+job.ID+"/search?q=x")); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before the index exists, got %d", rec.Code)
	}
}

func TestUnknownJob(t *testing.T) {
	s, _ := testServer(t, false)
	for _, path := range []string{"/api/analyze/nope/status", "/api/analyze/nope/result", "/api/analyze/nope/search?q=x"} {
		if rec := serve(s, authGet(path)); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestListAnalyses_NoStore(t *testing.T) {
	s, _ := testServer(t, false)
	if rec := serve(s, authGet("/api/analyses")); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a result store, got %d", rec.Code)
	}
}

func TestGetAnalysis(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/kv/analyses/j1/meta":
			w.Write([]byte(`{"key_path":"analyses.j1.meta","value":{"persona":"Researcher"}}`))
		case "/kv/analyses/j1/sections/*":
			w.Write([]byte(`{"nodes":[{"key_path":"analyses.j1.sections.1","value":{"section_title":"Introduction"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer store.Close()
	s, _ := testServerWithStore(t, false, pathstore.NewClient(store.URL, "k"))

	rec := serve(s, authGet("/api/analyses/j1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		JobID    string           `json:"job_id"`
		Meta     map[string]any   `json:"meta"`
		Sections []map[string]any `json:"sections"`
	}
	decode(t, rec, &got)
	if got.JobID != "j1" {
		t.Errorf("expected job_id j1, got %q", got.JobID)
	}
	if got.Meta["persona"] != "Researcher" {
		t.Errorf("expected persona Researcher, got %v", got.Meta["persona"])
	}
	if len(got.Sections) != 1 || got.Sections[0]["section_title"] != "Introduction" {
		t.Errorf("expected one Introduction section, got %v", got.Sections)
	}

	if rec := serve(s, authGet("/api/analyses/missing")); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing analysis, got %d", rec.Code)
	}
}

func TestGetAnalysis_NoStore(t *testing.T) {
	s, _ := testServer(t, false)
	if rec := serve(s, authGet("/api/analyses/j1")); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a result store, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\docs\notes.md`, "notes.md"},
		{"a..b.txt", "a_b.txt"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestAnalysisID(t *testing.T) {
	if got := analysisID("analyses.1234-abcd.meta"); got != "1234-abcd" {
		t.Errorf("expected 1234-abcd, got %q", got)
	}
	if got := analysisID("analyses/xyz/meta"); got != "xyz" {
		t.Errorf("expected xyz, got %q", got)
	}
}
