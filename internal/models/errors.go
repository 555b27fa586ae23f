package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and handlers. Storage and service
// layers wrap these with context; handlers map them to HTTP status codes.
var (
	ErrSiteNotFound  = errors.New("site not found")
	ErrJobNotFound   = errors.New("crawl job not found")
	ErrPageNotFound  = errors.New("page not found")
	ErrScoreNotFound = errors.New("score not found")

	// ErrJobConflict is returned when a crawl is submitted for a site that
	// already has a running job.
	ErrJobConflict = errors.New("a crawl job is already running for this site")

	// ErrInvalidTransition is returned for illegal job lifecycle moves.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrBlockedByRobots marks fetches refused by the site's robots policy.
	ErrBlockedByRobots = errors.New("blocked by robots.txt")

	// ErrJobTimeout marks jobs terminated by the watchdog.
	ErrJobTimeout = errors.New("job exceeded time limit")
)

// JobConflictError rejects a crawl submission because the site already has
// an active job. Its message is returned verbatim in the 409 response.
type JobConflictError struct {
	Domain string
	JobID  string
}

func (e *JobConflictError) Error() string {
	return fmt.Sprintf("A crawl is already running for %s. Job ID: %s", e.Domain, e.JobID)
}

func (e *JobConflictError) Unwrap() error {
	return ErrJobConflict
}
