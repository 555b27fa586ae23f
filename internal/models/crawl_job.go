package models

import "time"

// JobStatus represents the state of a crawl job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// validTransitions defines the job lifecycle. Terminal states have no exits.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning, JobStatusCancelled},
	JobStatusRunning: {JobStatusPaused, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusPaused:  {JobStatusRunning, JobStatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is an end state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the string is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusPaused,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// MaxJobErrorLen bounds the failure text stored on a job.
const MaxJobErrorLen = 2000

// CrawlJob represents one crawl of a site. Submission options are snapshot
// onto the job so it is self-contained and re-runnable.
type CrawlJob struct {
	ID            string     `json:"id"`
	SiteID        string     `json:"site_id" badgerhold:"index"`
	Status        JobStatus  `json:"status" badgerhold:"index"`
	StartURL      string     `json:"start_url"`
	PagesCrawled  int        `json:"pages_crawled"`
	PagesFailed   int        `json:"pages_failed"`
	PagesQueued   int        `json:"pages_queued"`
	MaxDepth      int        `json:"max_depth"`
	MaxPages      int        `json:"max_pages"`
	RateLimitRPS  float64    `json:"rate_limit_rps"`
	RenderJS      bool       `json:"render_js"`
	RespectRobots bool       `json:"respect_robots"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	// Error holds a concise description of why the job failed, truncated to
	// MaxJobErrorLen. Only populated on failed jobs.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SetError records a failure message on the job, truncating oversized text.
func (j *CrawlJob) SetError(msg string) {
	if len(msg) > MaxJobErrorLen {
		msg = msg[:MaxJobErrorLen]
	}
	j.Error = msg
}
