package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/censeo/internal/models"
)

// SiteStorage persists registered sites.
type SiteStorage interface {
	Create(ctx context.Context, site *models.Site) error
	GetByID(ctx context.Context, id string) (*models.Site, error)
	GetByDomain(ctx context.Context, domain string) (*models.Site, error)

	// GetAll returns active sites, newest first.
	GetAll(ctx context.Context) ([]*models.Site, error)

	Update(ctx context.Context, site *models.Site) error

	// UpdatePageCount records the persisted page total and crawl time after
	// a crawl completes.
	UpdatePageCount(ctx context.Context, siteID string, pageCount int, crawledAt time.Time) error
}

// CrawlJobStorage persists crawl jobs and enforces the job lifecycle.
type CrawlJobStorage interface {
	Create(ctx context.Context, job *models.CrawlJob) error
	GetByID(ctx context.Context, id string) (*models.CrawlJob, error)

	// UpdateStatus transitions a job, stamping StartedAt on running and
	// CompletedAt on terminal states. Illegal transitions return
	// models.ErrInvalidTransition. errMsg is recorded (truncated) on failed.
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) (*models.CrawlJob, error)

	// IncrementCrawled bumps the pages_crawled counter by one.
	IncrementCrawled(ctx context.Context, id string) error

	// UpdateCounts records final page counters on the job row.
	UpdateCounts(ctx context.Context, id string, crawled, failed, queued int) error

	// GetRecentForSite returns the site's jobs, newest first.
	GetRecentForSite(ctx context.Context, siteID string, limit int) ([]*models.CrawlJob, error)

	// GetByStatus returns all jobs currently in the given status.
	GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.CrawlJob, error)
}

// PageStorage persists analyzed pages, unique per (SiteID, URL).
type PageStorage interface {
	// Upsert inserts or replaces the page keyed by (SiteID, URL), keeping
	// the existing row's ID on replace. Returns the stored row.
	Upsert(ctx context.Context, page *models.Page) (*models.Page, error)

	GetByID(ctx context.Context, id string) (*models.Page, error)
	GetByURL(ctx context.Context, siteID, url string) (*models.Page, error)

	// GetForSite returns pages newest-crawled first, optionally filtered by
	// status code.
	GetForSite(ctx context.Context, siteID string, statusCode *int, offset, limit int) ([]*models.Page, error)

	CountForSite(ctx context.Context, siteID string) (int, error)

	// GetMissingTitles returns crawled pages with an empty title.
	GetMissingTitles(ctx context.Context, siteID string) ([]*models.Page, error)
}

// LinkStorage persists the outgoing-link graph.
type LinkStorage interface {
	// ReplaceForPage atomically swaps the page's outgoing links.
	ReplaceForPage(ctx context.Context, siteID, pageID string, links []*models.Link) error

	GetForPage(ctx context.Context, pageID string) ([]*models.Link, error)

	// CountInbound counts internal links across the site pointing at the URL.
	CountInbound(ctx context.Context, siteID, targetURL string) (int, error)

	// GetBroken returns internal links whose target page resolved 4xx/5xx.
	GetBroken(ctx context.Context, siteID string) ([]*models.Link, error)
}

// ScoreStorage persists page and site scores.
type ScoreStorage interface {
	// UpsertSiteScore replaces the site-level score (PageID empty).
	UpsertSiteScore(ctx context.Context, score *models.Score) error

	// UpsertPageScore replaces the page's score.
	UpsertPageScore(ctx context.Context, score *models.Score) error

	// GetSiteScore returns the latest site-level score or
	// models.ErrScoreNotFound.
	GetSiteScore(ctx context.Context, siteID string) (*models.Score, error)

	GetPageScore(ctx context.Context, pageID string) (*models.Score, error)
}

// IssueStorage persists detected issues.
type IssueStorage interface {
	// ReplaceForPage swaps the page's unresolved issues for the new set.
	ReplaceForPage(ctx context.Context, siteID, pageID string, issues []*models.Issue) error

	// ReplaceSiteWide swaps the site-wide (pageless) unresolved issues.
	ReplaceSiteWide(ctx context.Context, siteID string, issues []*models.Issue) error

	// GetForSite returns issues filtered by severity and resolution state,
	// ordered most severe first.
	GetForSite(ctx context.Context, siteID string, severity *models.IssueSeverity, resolved *bool, offset, limit int) ([]*models.Issue, error)

	// CountBySeverity tallies unresolved issues per severity.
	CountBySeverity(ctx context.Context, siteID string) (map[models.IssueSeverity]int, error)

	DeleteForJob(ctx context.Context, jobID string) error
}

// KeywordStorage persists keyword opportunities, unique per (SiteID, Keyword).
type KeywordStorage interface {
	BulkUpsert(ctx context.Context, siteID string, keywords []*models.Keyword) error

	// GetOpportunities returns keywords flagged as opportunities with
	// opportunity_score at or above minScore, highest first.
	GetOpportunities(ctx context.Context, siteID string, minScore float64, limit int) ([]*models.Keyword, error)

	// GetAllForSite returns keywords by frequency, highest first, capped at
	// limit (500 when zero).
	GetAllForSite(ctx context.Context, siteID string, limit int) ([]*models.Keyword, error)

	CountForSite(ctx context.Context, siteID string) (int, error)
}

// StorageManager aggregates all storage interfaces over one database.
type StorageManager interface {
	SiteStorage() SiteStorage
	CrawlJobStorage() CrawlJobStorage
	PageStorage() PageStorage
	LinkStorage() LinkStorage
	ScoreStorage() ScoreStorage
	IssueStorage() IssueStorage
	KeywordStorage() KeywordStorage
	DB() interface{}
	Close() error
}
