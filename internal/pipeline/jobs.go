package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docintel/internal/sectionindex"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusAnalyzing JobStatus = "analyzing"
	StatusIndexing  JobStatus = "indexing"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Done reports whether the job has reached a final state.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Job tracks one asynchronous analysis of a document collection.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	Persona     string `json:"persona"`
	JobToBeDone string `json:"job_to_be_done"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	inputs   []Input
	result   *Result
	index    *sectionindex.Index
	errors   []string
	released bool // removed from the store; later indexes are closed on arrival
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments  int      `json:"total_documents"`
	ParsedDocuments int      `json:"parsed_documents"`
	Sections        int      `json:"sections"`
	Subsections     int      `json:"subsections"`
	Stored          int      `json:"stored"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for the given documents.
func NewJob(persona, jobToBeDone string, inputs []Input) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Persona:     persona,
		JobToBeDone: jobToBeDone,
		Status:      StatusQueued,
		Phase:       "queued",
		Progress:    Progress{TotalDocuments: len(inputs)},
		CreatedAt:   now,
		UpdatedAt:   now,
		inputs:      inputs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Delete removes a job and reports whether it existed.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()
	if ok {
		job.release()
	}
	return ok
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs, releases their indexes and returns the
// number removed.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	now := time.Now()
	var expired []*Job
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	for _, job := range expired {
		job.release()
	}
	return len(expired)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddStored records nodes written to the result store.
func (j *Job) AddStored(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Stored += n
	j.UpdatedAt = time.Now()
}

// Inputs returns the documents to analyze.
func (j *Job) Inputs() []Input {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputs
}

// SetResult stores the analysis result, updates the counters and drops the
// raw inputs.
func (j *Job) SetResult(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.inputs = nil
	j.Progress.ParsedDocuments = 0
	for _, d := range res.Documents {
		if d.Status == DocParsed {
			j.Progress.ParsedDocuments++
		}
	}
	j.Progress.Sections = len(res.ExtractedSections)
	j.Progress.Subsections = len(res.SubsectionAnalysis)
	j.UpdatedAt = time.Now()
}

// Result returns the analysis result, or nil before the analysis completes.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// SetIndex attaches the search index of the job's scored sections.
// It reports false, after closing idx, when the job has already been
// removed from its store.
func (j *Job) SetIndex(idx *sectionindex.Index) bool {
	j.mu.Lock()
	released := j.released
	if !released {
		j.index = idx
		j.UpdatedAt = time.Now()
	}
	j.mu.Unlock()
	if released {
		_ = idx.Close()
	}
	return !released
}

// Index returns the job's section index, or nil if none was built.
func (j *Job) Index() *sectionindex.Index {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.index
}

func (j *Job) release() {
	j.mu.Lock()
	idx := j.index
	j.index = nil
	j.released = true
	j.mu.Unlock()
	if idx != nil {
		_ = idx.Close()
	}
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Persona     string    `json:"persona"`
	JobToBeDone string    `json:"job_to_be_done"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		Persona:     j.Persona,
		JobToBeDone: j.JobToBeDone,
		Status:      j.Status,
		Phase:       j.Phase,
		Progress:    progress,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
