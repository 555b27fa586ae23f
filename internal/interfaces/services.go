package interfaces

import (
	"context"

	"github.com/ternarybob/censeo/internal/models"
)

// Fetcher retrieves one URL, following redirects and reporting timing.
// Implementations: plain HTTP and headless-browser rendering.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *models.CrawlResult
	Close() error
}

// PageSink consumes crawled pages as the crawler produces them. Sink errors
// are logged by the crawler and never abort the crawl.
type PageSink interface {
	OnPageCrawled(ctx context.Context, result *models.CrawlResult, depth int) error
}

// CrawlerService walks a site breadth-first under politeness constraints
// and streams every fetched page into the sink.
type CrawlerService interface {
	Crawl(ctx context.Context, job *models.CrawlJob, sink PageSink) (*models.CrawlStats, error)
}

// AnalyzerService extracts on-page SEO signals from a fetched page.
// Analysis is synchronous and CPU-bound.
type AnalyzerService interface {
	Analyze(result *models.CrawlResult) (*models.PageAnalysis, error)
}

// ScorerService computes dimension scores with per-check breakdowns.
type ScorerService interface {
	// ScorePage scores one page; inboundLinks is the count of internal
	// links across the site pointing at it.
	ScorePage(page *models.Page, inboundLinks int) *models.Score

	// AggregateSite averages page scores into a site-level score.
	AggregateSite(scores []*models.Score) *models.Score
}

// RecommendService detects issues and produces fix guidance.
type RecommendService interface {
	ForPage(page *models.Page) []*models.Issue
	ForSite(pages []*models.Page) []*models.Issue
}

// KeywordService aggregates per-page keyword frequencies into ranked
// site-wide opportunities.
type KeywordService interface {
	Aggregate(pages []*models.Page) []*models.Keyword
}

// PipelineService owns crawl job execution end to end. It is the only
// component that mutates persistent crawl state.
type PipelineService interface {
	// SubmitCrawl registers the site if needed, creates a pending job and
	// dispatches it. Returns models.ErrJobConflict when the site already
	// has a running job.
	SubmitCrawl(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error)

	// CancelJob requests cancellation of a pending or running job.
	CancelJob(ctx context.Context, jobID string) error

	// Start launches the dispatcher and watchdog.
	Start() error

	// Stop drains running jobs and shuts the dispatcher down.
	Stop(ctx context.Context) error
}

// ReportService renders site reports for export.
type ReportService interface {
	// BuildMarkdown assembles the full SEO report as markdown.
	BuildMarkdown(ctx context.Context, siteID string) (string, error)

	// RenderHTML converts a markdown report to a standalone HTML document.
	RenderHTML(markdown string) ([]byte, error)

	// RenderPDF converts a markdown report to a PDF document.
	RenderPDF(markdown, title string) ([]byte, error)
}
