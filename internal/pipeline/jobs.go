package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusAnalyzing JobStatus = "analyzing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Upload is one document submitted with a job.
type Upload struct {
	Filename string
	Data     []byte
}

// Job tracks the state of a single analysis run.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	Query   string `json:"query"`
	Persona string `json:"persona"`
	Params  Params `json:"-"`

	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filenames []string  `json:"filenames"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	uploads []Upload
	result  *Output
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	Documents  int      `json:"documents"`
	Pages      int      `json:"pages"`
	Candidates int      `json:"candidates"`
	Selected   int      `json:"selected"`
	Snippets   int      `json:"snippets"`
	Errors     []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID. The content hash covers the
// query, persona, parameters and every upload in order.
func NewJob(query, persona string, params Params, uploads []Upload) *Job {
	now := time.Now()
	names := make([]string, len(uploads))
	for i, u := range uploads {
		names[i] = u.Filename
	}
	return &Job{
		ID:          uuid.NewString(),
		Query:       query,
		Persona:     persona,
		Params:      params,
		Status:      StatusQueued,
		Phase:       "queued",
		Filenames:   names,
		ContentHash: jobHash(query, persona, params, uploads),
		CreatedAt:   now,
		UpdatedAt:   now,
		uploads:     uploads,
	}
}

func jobHash(query, persona string, params Params, uploads []Upload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\x00%s\x00%d\x00%g\x00%d\x00%d\x00%d\x00%g\n",
		query, persona, params.TopK, params.Lambda, params.TopSentences, params.TopSnippets,
		params.Heading.MaxWords, params.Heading.SizeRatio)
	for _, u := range uploads {
		fmt.Fprintf(&sb, "%s\x00%s\n", u.Filename, ContentHashHex(u.Data))
	}
	return ContentHashHex([]byte(sb.String()))
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

// FindCompleted returns the result of the oldest completed job with the
// given content hash, if any.
func (s *JobStore) FindCompleted(hash string) (*Output, bool) {
	s.mu.Lock()
	var matches []*Job
	for _, job := range s.jobs {
		if job.ContentHash == hash {
			matches = append(matches, job)
		}
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, k int) bool { return matches[i].CreatedAt.Before(matches[k].CreatedAt) })
	for _, job := range matches {
		if out := job.Result(); out != nil {
			return out, true
		}
	}
	return nil, false
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
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

// SetParsed records how many documents and pages were parsed.
func (j *Job) SetParsed(documents, pages int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Documents = documents
	j.Progress.Pages = pages
	j.UpdatedAt = time.Now()
}

// Complete stores the result and marks the job completed.
func (j *Job) Complete(out *Output, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = out
	j.Progress.Candidates = out.Stats.Candidates
	j.Progress.Selected = len(out.ExtractedSections)
	j.Progress.Snippets = len(out.SubsectionAnalysis)
	j.Status = StatusCompleted
	j.Phase = phase
	j.uploads = nil
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	j.Status = StatusFailed
	j.Phase = phase
	j.uploads = nil
	j.UpdatedAt = time.Now()
}

// Result returns the output of a completed job, or nil.
func (j *Job) Result() *Output {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusCompleted {
		return nil
	}
	return j.result
}

// Uploads returns the submitted documents.
func (j *Job) Uploads() []Upload {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.uploads
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Query     string    `json:"query"`
	Persona   string    `json:"persona"`
	Filenames []string  `json:"filenames"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	names := append([]string{}, j.Filenames...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Query:     j.Query,
		Persona:   j.Persona,
		Filenames: names,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
