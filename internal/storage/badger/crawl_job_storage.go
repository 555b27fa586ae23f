package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CrawlJobStorage implements interfaces.CrawlJobStorage on Badger. Counter
// updates are read-modify-write, serialized by mu.
type CrawlJobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewCrawlJobStorage creates a new CrawlJobStorage instance.
func NewCrawlJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CrawlJobStorage {
	return &CrawlJobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CrawlJobStorage) Create(ctx context.Context, job *models.CrawlJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to create crawl job: %w", err)
	}
	return nil
}

func (s *CrawlJobStorage) GetByID(ctx context.Context, id string) (*models.CrawlJob, error) {
	var job models.CrawlJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get crawl job: %w", err)
	}
	return &job, nil
}

// UpdateStatus transitions the job lifecycle, stamping StartedAt when the
// job begins running and CompletedAt when it reaches a terminal state.
func (s *CrawlJobStorage) UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) (*models.CrawlJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !job.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	if errMsg != "" {
		job.SetError(errMsg)
	}

	now := time.Now().UTC()
	if status == models.JobStatusRunning && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.IsTerminal() {
		job.CompletedAt = &now
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to update crawl job: %w", err)
	}

	s.logger.Debug().
		Str("job_id", id).
		Str("status", string(status)).
		Msg("Crawl job status updated")
	return job, nil
}

func (s *CrawlJobStorage) IncrementCrawled(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	job.PagesCrawled++
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to increment pages_crawled: %w", err)
	}
	return nil
}

func (s *CrawlJobStorage) UpdateCounts(ctx context.Context, id string, crawled, failed, queued int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	job.PagesCrawled = crawled
	job.PagesFailed = failed
	job.PagesQueued = queued
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to update crawl job counters: %w", err)
	}
	return nil
}

func (s *CrawlJobStorage) GetRecentForSite(ctx context.Context, siteID string, limit int) ([]*models.CrawlJob, error) {
	query := badgerhold.Where("SiteID").Eq(siteID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.CrawlJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list crawl jobs: %w", err)
	}

	result := make([]*models.CrawlJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *CrawlJobStorage) GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.CrawlJob, error) {
	var jobs []models.CrawlJob
	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list crawl jobs by status: %w", err)
	}

	result := make([]*models.CrawlJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}
