package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/censeo/internal/models"
)

// orphanedMessage is recorded on running jobs that lost their executor,
// which happens when the process restarts mid-crawl.
const orphanedMessage = "job orphaned by restart"

// watchdogSweep enforces execution bounds on running jobs. Past the soft
// limit the crawl context is cancelled and the job unwinds to cancelled;
// past the hard limit, or with no live executor, the job is marked failed.
func (s *Service) watchdogSweep() {
	jobs, err := s.storage.CrawlJobStorage().GetByStatus(context.Background(), models.JobStatusRunning)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Watchdog sweep failed")
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		started := job.CreatedAt
		if job.StartedAt != nil {
			started = *job.StartedAt
		}
		age := now.Sub(started)
		handle := s.handle(job.ID)

		switch {
		case age > s.config.Jobs.HardTimeLimit:
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("age", age.Round(time.Second).String()).
				Msg("Job past hard time limit")
			if handle != nil {
				handle.cancel()
			}
			s.failJob(job.ID, models.ErrJobTimeout.Error())

		case handle == nil:
			s.logger.Warn().
				Str("job_id", job.ID).
				Msg("Running job has no executor")
			s.failJob(job.ID, orphanedMessage)

		case age > s.config.Jobs.SoftTimeLimit:
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("age", age.Round(time.Second).String()).
				Msg("Job past soft time limit, cancelling")
			handle.cancel()
		}
	}
}
