package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/ternarybob/censeo/internal/services/analyzer"
	"github.com/ternarybob/censeo/internal/services/keywords"
	"github.com/ternarybob/censeo/internal/services/recommend"
	"github.com/ternarybob/censeo/internal/services/scorer"
	"github.com/ternarybob/censeo/internal/storage/badger"
)

// fakeCrawler feeds canned results through the sink the way the real
// crawler does: sequentially, successes and failures alike. With block set
// it holds the crawl open until the job context ends, mirroring the real
// crawler's clean unwind on cancellation.
type fakeCrawler struct {
	results []*models.CrawlResult
	block   bool
}

func (f *fakeCrawler) Crawl(ctx context.Context, job *models.CrawlJob, sink interfaces.PageSink) (*models.CrawlStats, error) {
	stats := &models.CrawlStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	if f.block {
		<-ctx.Done()
		return stats, nil
	}

	for _, result := range f.results {
		if ctx.Err() != nil {
			break
		}
		if err := sink.OnPageCrawled(ctx, result, 0); err != nil {
			continue
		}
		if result.IsSuccess() {
			stats.PagesCrawled++
		} else {
			stats.PagesFailed++
		}
	}
	return stats, nil
}

func newTestService(t *testing.T, crawler interfaces.CrawlerService) *Service {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.Jobs.PendingRecheck = 20 * time.Millisecond
	cfg.Jobs.ShutdownGracetime = 2 * time.Second

	logger := common.GetLogger()
	store, err := badger.NewManager(logger, &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(cfg, logger, store,
		crawler,
		analyzer.NewService(logger),
		scorer.NewService(cfg, logger),
		recommend.NewService(logger),
		keywords.NewService(logger),
		NewEventHub(logger),
	)
}

func startService(t *testing.T, svc *Service) {
	t.Helper()
	require.NoError(t, svc.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
}

func waitForStatus(t *testing.T, svc *Service, jobID string, status models.JobStatus) *models.CrawlJob {
	t.Helper()
	var job *models.CrawlJob
	require.Eventually(t, func() bool {
		loaded, err := svc.storage.CrawlJobStorage().GetByID(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = loaded
		return job.Status == status
	}, 5*time.Second, 20*time.Millisecond, "job never reached status %s", status)
	return job
}

// pageHTML builds a small but realistic document: enough body text to clear
// thin-content checks and one internal plus one external link.
func pageHTML(title string) string {
	body := strings.Repeat("garden widgets need regular care and honest reviews ", 40)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<title>%s</title>
<meta name="description" content="A practical guide to garden widgets, their upkeep and installation.">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<h1>%s</h1>
<main><p>%s</p></main>
<a href="/guide">Widget guide</a>
<a href="https://reference.example.org/widgets">External reference</a>
</body>
</html>`, title, title, body)
}

func successResult(url, title string) *models.CrawlResult {
	return &models.CrawlResult{
		URL:           url,
		FinalURL:      url,
		StatusCode:    200,
		HTML:          pageHTML(title),
		LoadTimeMS:    800,
		PageSizeBytes: 4200,
	}
}

func TestSubmitCrawlRegistersSiteAndJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	resp, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "Example.com/"})
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "example.com", resp.Domain)
	assert.Equal(t, "Crawl job started for example.com. Track progress using the job_id.", resp.Message)
	assert.NotEmpty(t, resp.JobID)
	assert.NotEmpty(t, resp.SiteID)

	site, err := svc.storage.SiteStorage().GetByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, resp.SiteID, site.ID)
	assert.True(t, site.IsActive)
	assert.Equal(t, models.CrawlFrequencyManual, site.CrawlFrequency)

	job, err := svc.storage.CrawlJobStorage().GetByID(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "https://Example.com", job.StartURL)
	assert.Equal(t, models.DefaultCrawlMaxDepth, job.MaxDepth)
	assert.Equal(t, models.DefaultCrawlMaxPages, job.MaxPages)
	assert.Equal(t, models.DefaultCrawlRateLimitRPS, job.RateLimitRPS)
	assert.True(t, job.RespectRobots)
	assert.False(t, job.RenderJS)
}

func TestSubmitCrawlRejectsInvalidURL(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})

	_, err := svc.SubmitCrawl(context.Background(), &models.CrawlRequest{URL: "%zz"})
	require.Error(t, err)
}

func TestSubmitCrawlConflictsWithActiveJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	first, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)

	_, err = svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrJobConflict)

	var conflict *models.JobConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "example.com", conflict.Domain)
	assert.Equal(t, first.JobID, conflict.JobID)
	assert.Equal(t,
		fmt.Sprintf("A crawl is already running for example.com. Job ID: %s", first.JobID),
		err.Error())
}

func TestSubmitCrawlAcceptedAfterTerminalJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	first, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.CancelJob(ctx, first.JobID))

	second, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, second.JobID)
	assert.Equal(t, first.SiteID, second.SiteID, "resubmission reuses the registered site")
}

func TestCrawlJobRunsToCompletion(t *testing.T) {
	crawler := &fakeCrawler{results: []*models.CrawlResult{
		successResult("https://example.com", "Garden Widgets Explained"),
		successResult("https://example.com/guide", "Garden Widget Installation Guide"),
		{URL: "https://example.com/missing", FinalURL: "https://example.com/missing", StatusCode: 404},
	}}
	svc := newTestService(t, crawler)
	startService(t, svc)
	ctx := context.Background()

	received, unsubscribe := svc.events.Subscribe()
	defer unsubscribe()

	resp, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)

	job := waitForStatus(t, svc, resp.JobID, models.JobStatusCompleted)
	assert.Equal(t, 2, job.PagesCrawled)
	assert.Equal(t, 1, job.PagesFailed)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.Error)

	pages, err := svc.storage.PageStorage().GetForSite(ctx, resp.SiteID, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for _, page := range pages {
		score, err := svc.storage.ScoreStorage().GetPageScore(ctx, page.ID)
		require.NoError(t, err, "page %s has no score", page.URL)
		assert.Equal(t, page.ID, score.PageID)
	}

	siteScore, err := svc.storage.ScoreStorage().GetSiteScore(ctx, resp.SiteID)
	require.NoError(t, err)
	assert.Greater(t, siteScore.OverallScore, 0.0)
	assert.Empty(t, siteScore.PageID)

	keywordCount, err := svc.storage.KeywordStorage().CountForSite(ctx, resp.SiteID)
	require.NoError(t, err)
	assert.Greater(t, keywordCount, 0)
	assert.LessOrEqual(t, keywordCount, models.MaxKeywordsPerSite)

	issues, err := svc.storage.IssueStorage().GetForSite(ctx, resp.SiteID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
	for _, issue := range issues {
		assert.Equal(t, resp.JobID, issue.JobID)
	}

	site, err := svc.storage.SiteStorage().GetByID(ctx, resp.SiteID)
	require.NoError(t, err)
	assert.Equal(t, 3, site.PageCount)
	require.NotNil(t, site.LastCrawlAt)

	// The completion event is published last, so receiving it means every
	// earlier event is already buffered.
	var types []interfaces.EventType
	var statuses []string
	timeout := time.After(2 * time.Second)
	for len(types) == 0 || types[len(types)-1] != interfaces.EventCrawlCompleted {
		select {
		case event := <-received:
			types = append(types, event.Type)
			if event.Type == interfaces.EventJobStatusChanged {
				statuses = append(statuses, event.Status)
			}
		case <-timeout:
			t.Fatalf("crawl completion event never arrived, saw %v", types)
		}
	}
	assert.Contains(t, types, interfaces.EventPageCrawled)
	assert.Contains(t, statuses, string(models.JobStatusRunning))
	assert.Contains(t, statuses, string(models.JobStatusCompleted))
}

func TestCancelPendingJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	resp, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.CancelJob(ctx, resp.JobID))

	job, err := svc.storage.CrawlJobStorage().GetByID(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	require.NotNil(t, job.CompletedAt)

	err = svc.CancelJob(ctx, resp.JobID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancelRunningJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{block: true})
	startService(t, svc)
	ctx := context.Background()

	resp, err := svc.SubmitCrawl(ctx, &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)

	waitForStatus(t, svc, resp.JobID, models.JobStatusRunning)
	require.NoError(t, svc.CancelJob(ctx, resp.JobID))

	job := waitForStatus(t, svc, resp.JobID, models.JobStatusCancelled)
	require.NotNil(t, job.CompletedAt)
}

func TestCancelUnknownJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})

	err := svc.CancelJob(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestHardTimeLimitFailsJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{block: true})
	svc.config.Jobs.SoftTimeLimit = 30 * time.Millisecond
	svc.config.Jobs.HardTimeLimit = 60 * time.Millisecond
	startService(t, svc)

	resp, err := svc.SubmitCrawl(context.Background(), &models.CrawlRequest{URL: "example.com"})
	require.NoError(t, err)

	job := waitForStatus(t, svc, resp.JobID, models.JobStatusFailed)
	assert.Equal(t, models.ErrJobTimeout.Error(), job.Error)
}

func TestWatchdogFailsOrphanedJob(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	job := &models.CrawlJob{
		ID:       "orphan-1",
		SiteID:   "site-1",
		Status:   models.JobStatusPending,
		StartURL: "https://example.com",
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))
	_, err := svc.storage.CrawlJobStorage().UpdateStatus(ctx, job.ID, models.JobStatusRunning, "")
	require.NoError(t, err)

	svc.watchdogSweep()

	updated, err := svc.storage.CrawlJobStorage().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, updated.Status)
	assert.Equal(t, orphanedMessage, updated.Error)
}

func TestWatchdogCancelsJobPastSoftLimit(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	started := time.Now().UTC().Add(-(svc.config.Jobs.SoftTimeLimit + time.Minute))
	job := &models.CrawlJob{
		ID:        "soft-1",
		SiteID:    "site-1",
		Status:    models.JobStatusRunning,
		StartURL:  "https://example.com",
		StartedAt: &started,
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))

	cancelled := false
	svc.track(job.ID, &jobHandle{siteID: job.SiteID, cancel: func() { cancelled = true }})

	svc.watchdogSweep()

	assert.True(t, cancelled, "soft limit should cancel the crawl context")
	updated, err := svc.storage.CrawlJobStorage().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, updated.Status, "executor owns the terminal transition")
}

func TestWatchdogFailsJobPastHardLimit(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	started := time.Now().UTC().Add(-(svc.config.Jobs.HardTimeLimit + time.Minute))
	job := &models.CrawlJob{
		ID:        "hard-1",
		SiteID:    "site-1",
		Status:    models.JobStatusRunning,
		StartURL:  "https://example.com",
		StartedAt: &started,
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))

	cancelled := false
	svc.track(job.ID, &jobHandle{siteID: job.SiteID, cancel: func() { cancelled = true }})

	svc.watchdogSweep()

	assert.True(t, cancelled)
	updated, err := svc.storage.CrawlJobStorage().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, updated.Status)
	assert.Equal(t, models.ErrJobTimeout.Error(), updated.Error)
}

func TestPendingSweepDispatchesRecoveredJobs(t *testing.T) {
	crawler := &fakeCrawler{results: []*models.CrawlResult{
		successResult("https://example.com", "Garden Widgets Explained"),
	}}
	svc := newTestService(t, crawler)
	ctx := context.Background()

	// A pending job created outside SubmitCrawl stands in for one left
	// behind by a restart: nothing has enqueued it.
	site := &models.Site{ID: "site-restart", Domain: "example.com", IsActive: true}
	require.NoError(t, svc.storage.SiteStorage().Create(ctx, site))
	job := &models.CrawlJob{
		ID:       "recovered-1",
		SiteID:   site.ID,
		Status:   models.JobStatusPending,
		StartURL: "https://example.com",
		MaxDepth: 2,
		MaxPages: 10,
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))

	startService(t, svc)

	waitForStatus(t, svc, job.ID, models.JobStatusCompleted)
}

func TestSinkPersistsCrawledPage(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	job := &models.CrawlJob{
		ID:       "job-1",
		SiteID:   "site-1",
		Status:   models.JobStatusRunning,
		StartURL: "https://example.com",
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))

	received, unsubscribe := svc.events.Subscribe()
	defer unsubscribe()

	sink := newPageSink(svc, job)
	result := successResult("https://example.com/widgets", "Garden Widgets")
	require.NoError(t, sink.OnPageCrawled(ctx, result, 2))

	page, err := svc.storage.PageStorage().GetByURL(ctx, "site-1", "https://example.com/widgets")
	require.NoError(t, err)
	assert.Equal(t, "Garden Widgets", page.Title)
	assert.Equal(t, 2, page.Depth)
	assert.Equal(t, int64(800), page.LoadTimeMS)
	assert.Equal(t, 4200, page.PageSizeBytes)
	assert.NotEmpty(t, page.Keywords)
	assert.Greater(t, page.WordCount, 300)
	assert.False(t, page.CrawledAt.IsZero())

	links, err := svc.storage.LinkStorage().GetForPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, links, 1, "external links are not part of the internal graph")
	assert.Equal(t, "https://example.com/guide", links[0].TargetURL)
	assert.True(t, links[0].IsInternal)

	score, err := svc.storage.ScoreStorage().GetPageScore(ctx, page.ID)
	require.NoError(t, err)
	assert.Greater(t, score.OverallScore, 0.0)

	issues, err := svc.storage.IssueStorage().GetForSite(ctx, "site-1", nil, nil, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	for _, issue := range issues {
		assert.Equal(t, "job-1", issue.JobID)
		assert.Equal(t, page.ID, issue.PageID)
	}

	updated, err := svc.storage.CrawlJobStorage().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PagesCrawled)

	event := <-received
	assert.Equal(t, interfaces.EventPageCrawled, event.Type)
	assert.Equal(t, "https://example.com/widgets", event.URL)
	assert.Equal(t, 1, event.PagesCrawled)
	assert.Equal(t, 0, event.PagesFailed)
}

func TestSinkRecordsFailedFetch(t *testing.T) {
	svc := newTestService(t, &fakeCrawler{})
	ctx := context.Background()

	job := &models.CrawlJob{
		ID:       "job-2",
		SiteID:   "site-2",
		Status:   models.JobStatusRunning,
		StartURL: "https://example.com",
	}
	require.NoError(t, svc.storage.CrawlJobStorage().Create(ctx, job))

	sink := newPageSink(svc, job)
	result := &models.CrawlResult{
		URL:        "https://example.com/broken",
		FinalURL:   "https://example.com/broken",
		StatusCode: 500,
		Error:      errors.New("server error"),
	}
	require.NoError(t, sink.OnPageCrawled(ctx, result, 1))

	page, err := svc.storage.PageStorage().GetByURL(ctx, "site-2", "https://example.com/broken")
	require.NoError(t, err, "failed fetches still persist a page row")
	assert.Equal(t, 500, page.StatusCode)

	updated, err := svc.storage.CrawlJobStorage().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.PagesCrawled, "failures never count as crawled")
	assert.Equal(t, 1, sink.failed)
}

func TestInternalLinksCappedPerPage(t *testing.T) {
	analysis := &models.PageAnalysis{}
	for i := 0; i < models.MaxLinksPerPage+50; i++ {
		analysis.Links = append(analysis.Links, models.ExtractedLink{
			TargetURL:  fmt.Sprintf("https://example.com/p%d", i),
			IsInternal: true,
		})
	}
	analysis.Links = append(analysis.Links, models.ExtractedLink{
		TargetURL: "https://elsewhere.example.org/",
	})

	links := internalLinks(analysis)
	assert.Len(t, links, models.MaxLinksPerPage)
	for _, link := range links {
		assert.True(t, link.IsInternal)
	}
}

func TestCapRunes(t *testing.T) {
	assert.Equal(t, "short", capRunes("short", 10))
	assert.Equal(t, "héll", capRunes("héllo", 4))
	assert.Equal(t, strings.Repeat("a", 5), capRunes(strings.Repeat("a", 50), 5))
}
