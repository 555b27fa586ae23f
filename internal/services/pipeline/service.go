package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// queueCapacity bounds the pending dispatch queue. Jobs that do not fit stay
// pending in storage and are picked up by the pending sweep.
const queueCapacity = 256

// jobHandle tracks a live job executor so the watchdog and CancelJob can
// stop it.
type jobHandle struct {
	siteID string
	cancel context.CancelFunc
}

// Service owns crawl job execution end to end: it accepts submissions,
// dispatches pending jobs to a bounded worker pool, persists everything a
// crawl produces, and finishes each job with site-level scoring, keyword
// aggregation and site-wide issue detection.
type Service struct {
	config      *common.Config
	logger      arbor.ILogger
	storage     interfaces.StorageManager
	crawler     interfaces.CrawlerService
	analyzer    interfaces.AnalyzerService
	scorer      interfaces.ScorerService
	recommender interfaces.RecommendService
	keywords    interfaces.KeywordService
	events      interfaces.EventService

	queue   chan string
	wg      sync.WaitGroup
	watcher *cron.Cron

	mu      sync.Mutex
	queued  map[string]bool
	running map[string]*jobHandle

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewService wires the crawl pipeline. Start must be called before jobs are
// dispatched.
func NewService(
	config *common.Config,
	logger arbor.ILogger,
	storage interfaces.StorageManager,
	crawler interfaces.CrawlerService,
	analyzer interfaces.AnalyzerService,
	scorer interfaces.ScorerService,
	recommender interfaces.RecommendService,
	keywords interfaces.KeywordService,
	events interfaces.EventService,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:      config,
		logger:      logger,
		storage:     storage,
		crawler:     crawler,
		analyzer:    analyzer,
		scorer:      scorer,
		recommender: recommender,
		keywords:    keywords,
		events:      events,
		queue:       make(chan string, queueCapacity),
		queued:      make(map[string]bool),
		running:     make(map[string]*jobHandle),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// SubmitCrawl registers the site if it is new, creates a pending job and
// queues it for dispatch. A site with a non-terminal job rejects new
// submissions with a models.JobConflictError.
func (s *Service) SubmitCrawl(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error) {
	req.Normalize()
	domain, err := req.Domain()
	if err != nil {
		return nil, fmt.Errorf("invalid crawl URL %q: %w", req.URL, err)
	}

	site, err := s.storage.SiteStorage().GetByDomain(ctx, domain)
	if errors.Is(err, models.ErrSiteNotFound) {
		site = &models.Site{
			ID:             uuid.New().String(),
			Domain:         domain,
			Name:           domain,
			RootURL:        req.URL,
			IsActive:       true,
			CrawlFrequency: models.CrawlFrequencyManual,
			MaxPages:       req.MaxPages,
		}
		if err := s.storage.SiteStorage().Create(ctx, site); err != nil {
			return nil, fmt.Errorf("registering site %s: %w", domain, err)
		}
		s.logger.Info().
			Str("site_id", site.ID).
			Str("domain", domain).
			Msg("Site registered")
	} else if err != nil {
		return nil, fmt.Errorf("looking up site %s: %w", domain, err)
	}

	recent, err := s.storage.CrawlJobStorage().GetRecentForSite(ctx, site.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("checking active jobs for %s: %w", domain, err)
	}
	if len(recent) > 0 && !recent[0].Status.IsTerminal() {
		return nil, &models.JobConflictError{Domain: domain, JobID: recent[0].ID}
	}

	job := &models.CrawlJob{
		ID:            uuid.New().String(),
		SiteID:        site.ID,
		Status:        models.JobStatusPending,
		StartURL:      req.URL,
		MaxDepth:      req.MaxDepth,
		MaxPages:      req.MaxPages,
		RateLimitRPS:  req.RateLimitRPS,
		RenderJS:      req.UseJSRendering,
		RespectRobots: *req.RespectRobots,
	}
	if err := s.storage.CrawlJobStorage().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating crawl job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("site_id", site.ID).
		Str("url", req.URL).
		Int("max_depth", job.MaxDepth).
		Int("max_pages", job.MaxPages).
		Msg("Crawl job submitted")

	s.publishStatus(job)
	s.enqueue(job.ID)

	return &models.CrawlResponse{
		JobID:   job.ID,
		SiteID:  site.ID,
		Status:  string(job.Status),
		Message: fmt.Sprintf("Crawl job started for %s. Track progress using the job_id.", domain),
		Domain:  domain,
	}, nil
}

// CancelJob requests cancellation. Pending jobs transition immediately;
// running jobs are cancelled through their executor, which records the
// terminal state once the crawl unwinds. Terminal jobs are rejected.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.storage.CrawlJobStorage().GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case models.JobStatusPending:
		updated, err := s.storage.CrawlJobStorage().UpdateStatus(ctx, jobID, models.JobStatusCancelled, "")
		if err != nil {
			return err
		}
		s.logger.Info().Str("job_id", jobID).Msg("Pending crawl job cancelled")
		s.publishStatus(updated)
		return nil

	case models.JobStatusRunning, models.JobStatusPaused:
		if handle := s.handle(jobID); handle != nil {
			s.logger.Info().Str("job_id", jobID).Msg("Cancelling running crawl job")
			handle.cancel()
			return nil
		}
		// No live executor, likely a job orphaned by a restart.
		updated, err := s.storage.CrawlJobStorage().UpdateStatus(ctx, jobID, models.JobStatusCancelled, "")
		if err != nil {
			return err
		}
		s.logger.Warn().Str("job_id", jobID).Msg("Orphaned crawl job cancelled")
		s.publishStatus(updated)
		return nil

	default:
		return fmt.Errorf("%w: job %s is %s", models.ErrInvalidTransition, jobID, job.Status)
	}
}

// Start launches the worker pool, the pending-job sweep and the watchdog.
func (s *Service) Start() error {
	for i := 0; i < s.config.Jobs.MaxConcurrent; i++ {
		s.wg.Add(1)
		name := fmt.Sprintf("pipeline-worker-%d", i)
		common.SafeGo(s.logger, name, func() {
			defer s.wg.Done()
			s.workerLoop()
		})
	}

	s.wg.Add(1)
	common.SafeGo(s.logger, "pipeline-pending-sweep", func() {
		defer s.wg.Done()
		s.pendingLoop()
	})

	s.watcher = cron.New()
	if _, err := s.watcher.AddFunc(s.config.Jobs.WatchdogSchedule, s.watchdogSweep); err != nil {
		return fmt.Errorf("scheduling job watchdog: %w", err)
	}
	s.watcher.Start()

	s.logger.Info().
		Int("workers", s.config.Jobs.MaxConcurrent).
		Str("watchdog_schedule", s.config.Jobs.WatchdogSchedule).
		Msg("Crawl pipeline started")
	return nil
}

// Stop cancels running jobs and waits for executors to unwind, bounded by
// ctx and the configured shutdown gracetime.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Crawl pipeline stopping")

	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(s.config.Jobs.ShutdownGracetime)
	defer grace.Stop()

	select {
	case <-done:
		s.logger.Info().Msg("Crawl pipeline stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-grace.C:
		return fmt.Errorf("pipeline shutdown exceeded gracetime %s", s.config.Jobs.ShutdownGracetime)
	}
}

// enqueue hands a pending job to the worker pool. Returns false when the job
// is already tracked or the queue is full; the pending sweep retries later.
func (s *Service) enqueue(jobID string) bool {
	s.mu.Lock()
	if s.queued[jobID] || s.running[jobID] != nil {
		s.mu.Unlock()
		return false
	}
	s.queued[jobID] = true
	s.mu.Unlock()

	select {
	case s.queue <- jobID:
		return true
	default:
		s.mu.Lock()
		delete(s.queued, jobID)
		s.mu.Unlock()
		s.logger.Warn().Str("job_id", jobID).Msg("Dispatch queue full, job stays pending")
		return false
	}
}

func (s *Service) workerLoop() {
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case jobID := <-s.queue:
			s.runJob(jobID)
		}
	}
}

// pendingLoop periodically rescans storage for pending jobs that are not
// queued, covering queue overflow and jobs left pending by a restart.
func (s *Service) pendingLoop() {
	ticker := time.NewTicker(s.config.Jobs.PendingRecheck)
	defer ticker.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			jobs, err := s.storage.CrawlJobStorage().GetByStatus(s.baseCtx, models.JobStatusPending)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Pending job sweep failed")
				continue
			}
			for _, job := range jobs {
				s.enqueue(job.ID)
			}
		}
	}
}

// runJob executes one crawl job from dispatch to terminal state.
func (s *Service) runJob(jobID string) {
	s.mu.Lock()
	delete(s.queued, jobID)
	s.mu.Unlock()

	job, err := s.storage.CrawlJobStorage().GetByID(s.baseCtx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Dispatched job not loadable")
		return
	}
	if job.Status != models.JobStatusPending {
		s.logger.Debug().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("Skipping job no longer pending")
		return
	}

	jobCtx, cancelJob := context.WithTimeout(s.baseCtx, s.config.Jobs.HardTimeLimit)
	defer cancelJob()

	// Register the handle before the running transition so the watchdog
	// never sees a running job without one. Registration is exclusive; a
	// duplicate dispatch backs off here.
	handle := &jobHandle{siteID: job.SiteID, cancel: cancelJob}
	if !s.track(jobID, handle) {
		s.logger.Debug().Str("job_id", jobID).Msg("Job already has an executor")
		return
	}
	defer s.untrack(jobID, handle)

	job, err = s.storage.CrawlJobStorage().UpdateStatus(s.baseCtx, jobID, models.JobStatusRunning, "")
	if err != nil {
		// Lost a race with CancelJob between dispatch and here.
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job not startable")
		return
	}
	s.publishStatus(job)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("site_id", job.SiteID).
		Str("url", job.StartURL).
		Msg("Crawl job running")

	if err := s.execute(jobCtx, job); err != nil {
		s.failJob(jobID, err.Error())
	}
}

// execute runs the crawl and, unless the job was cancelled or timed out,
// the post-crawl completion pass. The returned error marks the job failed.
func (s *Service) execute(ctx context.Context, job *models.CrawlJob) error {
	sink := newPageSink(s, job)
	stats, err := s.crawler.Crawl(ctx, job, sink)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if err := s.storage.CrawlJobStorage().UpdateCounts(context.Background(), job.ID, stats.PagesCrawled, stats.PagesFailed, stats.PagesQueued); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record crawl counters")
	}

	// The crawler unwinds cleanly on context cancellation, so the cause
	// distinguishes a watchdog timeout from an operator cancel.
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return models.ErrJobTimeout
	case context.Canceled:
		s.markCancelled(job.ID)
		return nil
	}

	if err := s.finishJob(ctx, job, stats); err != nil {
		return fmt.Errorf("completing crawl: %w", err)
	}
	return nil
}

// finishJob runs the completion pass over everything the crawl persisted:
// page scores are recomputed with resolved inbound link counts, then the
// site score, keyword opportunities and site-wide issues are derived.
func (s *Service) finishJob(ctx context.Context, job *models.CrawlJob, stats *models.CrawlStats) error {
	pages, err := s.storage.PageStorage().GetForSite(ctx, job.SiteID, nil, 0, 0)
	if err != nil {
		return fmt.Errorf("loading crawled pages: %w", err)
	}

	scores := make([]*models.Score, 0, len(pages))
	for _, page := range pages {
		inbound, err := s.storage.LinkStorage().CountInbound(ctx, job.SiteID, page.URL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", page.URL).Msg("Inbound link count failed")
		}
		score := s.scorer.ScorePage(page, inbound)
		if err := s.storage.ScoreStorage().UpsertPageScore(ctx, score); err != nil {
			return fmt.Errorf("storing score for %s: %w", page.URL, err)
		}
		scores = append(scores, score)
	}

	siteScore := s.scorer.AggregateSite(scores)
	siteScore.SiteID = job.SiteID
	if err := s.storage.ScoreStorage().UpsertSiteScore(ctx, siteScore); err != nil {
		return fmt.Errorf("storing site score: %w", err)
	}

	keywords := s.keywords.Aggregate(pages)
	if len(keywords) > models.MaxKeywordsPerSite {
		keywords = keywords[:models.MaxKeywordsPerSite]
	}
	if err := s.storage.KeywordStorage().BulkUpsert(ctx, job.SiteID, keywords); err != nil {
		return fmt.Errorf("storing keywords: %w", err)
	}

	siteIssues := s.recommender.ForSite(pages)
	for _, issue := range siteIssues {
		issue.JobID = job.ID
	}
	if err := s.storage.IssueStorage().ReplaceSiteWide(ctx, job.SiteID, siteIssues); err != nil {
		return fmt.Errorf("storing site issues: %w", err)
	}

	count, err := s.storage.PageStorage().CountForSite(ctx, job.SiteID)
	if err != nil {
		return fmt.Errorf("counting site pages: %w", err)
	}
	if err := s.storage.SiteStorage().UpdatePageCount(ctx, job.SiteID, count, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating site page count: %w", err)
	}

	job, err = s.storage.CrawlJobStorage().UpdateStatus(ctx, job.ID, models.JobStatusCompleted, "")
	if err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}
	s.publishStatus(job)
	s.events.Publish(interfaces.CrawlEvent{
		Type:         interfaces.EventCrawlCompleted,
		JobID:        job.ID,
		SiteID:       job.SiteID,
		Status:       string(job.Status),
		PagesCrawled: job.PagesCrawled,
		PagesFailed:  job.PagesFailed,
	})

	s.logger.Info().
		Str("job_id", job.ID).
		Str("site_id", job.SiteID).
		Int("pages_crawled", stats.PagesCrawled).
		Int("pages_failed", stats.PagesFailed).
		Int("keywords", len(keywords)).
		Int("site_issues", len(siteIssues)).
		Float64("site_score", siteScore.OverallScore).
		Msg("Crawl job completed")
	return nil
}

// failJob records a terminal failure. The message is persisted (truncated)
// on the job row.
func (s *Service) failJob(jobID, message string) {
	s.logger.Error().Str("job_id", jobID).Str("error", message).Msg("Crawl job failed")

	job, err := s.storage.CrawlJobStorage().UpdateStatus(context.Background(), jobID, models.JobStatusFailed, message)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			s.logger.Debug().Str("job_id", jobID).Msg("Job already terminal")
		} else {
			s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed")
		}
		return
	}
	s.publishStatus(job)
}

// markCancelled records operator cancellation. The watchdog may have failed
// the job first; that transition wins.
func (s *Service) markCancelled(jobID string) {
	job, err := s.storage.CrawlJobStorage().UpdateStatus(context.Background(), jobID, models.JobStatusCancelled, "")
	if err != nil {
		if !errors.Is(err, models.ErrInvalidTransition) {
			s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job cancelled")
		}
		return
	}
	s.logger.Info().Str("job_id", jobID).Msg("Crawl job cancelled")
	s.publishStatus(job)
}

func (s *Service) publishStatus(job *models.CrawlJob) {
	s.events.Publish(interfaces.CrawlEvent{
		Type:         interfaces.EventJobStatusChanged,
		JobID:        job.ID,
		SiteID:       job.SiteID,
		Status:       string(job.Status),
		PagesCrawled: job.PagesCrawled,
		PagesFailed:  job.PagesFailed,
	})
}

func (s *Service) track(jobID string, handle *jobHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[jobID] != nil {
		return false
	}
	s.running[jobID] = handle
	return true
}

func (s *Service) untrack(jobID string, handle *jobHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[jobID] == handle {
		delete(s.running, jobID)
	}
}

func (s *Service) handle(jobID string) *jobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[jobID]
}
