package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// Service walks sites breadth-first under politeness constraints. The
// service itself is stateless; all per-crawl state lives in a crawlRun.
type Service struct {
	config *common.Config
	logger arbor.ILogger
}

// NewService creates a new crawler service
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// frontierEntry is one queued (url, depth) pair.
type frontierEntry struct {
	url   string
	depth int
}

// pageOutcome carries one fetched page plus its discovered internal links.
// skipped marks robots denials and cancellation, which are neither crawled
// nor failed.
type pageOutcome struct {
	result  *models.CrawlResult
	links   []string
	skipped bool
}

// crawlRun owns the mutable state of a single crawl: URL sets, frontier,
// fetchers and pacing. It is never shared across jobs.
type crawlRun struct {
	job    *models.CrawlJob
	cfg    common.CrawlerConfig
	sink   interfaces.PageSink
	logger arbor.ILogger

	baseURL          string
	baseHost         string
	registeredDomain string
	maxConcurrent    int

	fetcher interfaces.Fetcher
	robots  *RobotsPolicy
	limiter *HostRateLimiter
	sem     chan struct{}

	visited  map[string]bool
	queued   map[string]bool
	failed   map[string]bool
	frontier []frontierEntry

	stats models.CrawlStats
}

// Crawl executes the job's breadth-first walk, streaming every fetched page
// into the sink. It returns the final crawl statistics; the returned error
// is non-nil only for setup failures, never for per-page ones.
func (s *Service) Crawl(ctx context.Context, job *models.CrawlJob, sink interfaces.PageSink) (*models.CrawlStats, error) {
	parsed, err := url.Parse(job.StartURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid start url %q: %w", job.StartURL, err)
	}

	run := &crawlRun{
		job:              job,
		cfg:              s.config.Crawler,
		sink:             sink,
		logger:           s.logger,
		baseURL:          fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host),
		baseHost:         parsed.Host,
		registeredDomain: RegisteredDomain(job.StartURL),
		maxConcurrent:    s.config.Crawler.MaxConcurrent,
		visited:          make(map[string]bool),
		queued:           make(map[string]bool),
		failed:           make(map[string]bool),
	}

	rps := job.RateLimitRPS
	if rps <= 0 {
		rps = s.config.Crawler.RateLimitRPS
	}
	run.limiter = NewHostRateLimiter(rps)
	run.sem = make(chan struct{}, run.maxConcurrent)

	httpFetcher := NewHTTPFetcher(s.config.Crawler, s.logger)
	defer httpFetcher.Close()
	run.fetcher = httpFetcher

	if job.RenderJS {
		browser, err := NewBrowserFetcher(s.config.Crawler, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Browser unavailable, falling back to HTTP fetcher")
		} else {
			run.fetcher = browser
			defer browser.Close()
		}
	}

	if job.RespectRobots {
		run.robots = NewRobotsPolicy(run.baseURL, s.config.Crawler.UserAgent, s.config.Crawler.RobotsTimeout, httpFetcher.Client(), s.logger)
		run.robots.Fetch()
	}

	return run.crawl(ctx, httpFetcher.Client())
}

func (r *crawlRun) crawl(ctx context.Context, client *http.Client) (*models.CrawlStats, error) {
	r.stats.StartTime = time.Now()
	r.logger.Info().
		Str("start_url", r.job.StartURL).
		Int("max_depth", r.job.MaxDepth).
		Int("max_pages", r.job.MaxPages).
		Msg("Starting crawl")

	r.seed(ctx, client)

	for len(r.frontier) > 0 && len(r.visited) < r.job.MaxPages {
		if ctx.Err() != nil {
			r.logger.Info().Str("job_id", r.job.ID).Msg("Crawl cancelled, stopping between batches")
			break
		}

		batch := r.nextBatch()
		if len(batch) == 0 {
			break
		}

		outcomes := make([]*pageOutcome, len(batch))
		var wg sync.WaitGroup
		for i, entry := range batch {
			wg.Add(1)
			go func(i int, entry frontierEntry) {
				defer wg.Done()
				outcomes[i] = r.crawlPage(ctx, entry)
			}(i, entry)
		}
		wg.Wait()

		// Results emitted after cancellation are dropped.
		if ctx.Err() != nil {
			break
		}

		for i, outcome := range outcomes {
			r.processOutcome(ctx, batch[i], outcome)
		}

		r.logger.Info().
			Int("crawled", r.stats.PagesCrawled).
			Int("failed", r.stats.PagesFailed).
			Int("queued", len(r.frontier)).
			Msg("Crawl progress")
	}

	r.stats.EndTime = time.Now()
	r.stats.PagesQueued = len(r.frontier)
	r.logger.Info().
		Str("start_url", r.job.StartURL).
		Int("pages_crawled", r.stats.PagesCrawled).
		Int("pages_failed", r.stats.PagesFailed).
		Float64("duration_seconds", r.stats.Duration().Seconds()).
		Msg("Crawl complete")

	return &r.stats, nil
}

// seed fills the frontier with the normalized start URL followed by every
// internal, crawlable sitemap URL, all at depth 0. The start URL is always
// in scope; the robots allow-check still applies to each fetch.
func (r *crawlRun) seed(ctx context.Context, client *http.Client) {
	var robotsHints []string
	if r.robots != nil {
		robotsHints = r.robots.Sitemaps()
	}

	sitemaps := NewSitemapFetcher(r.baseURL, r.cfg.UserAgent, client, r.logger)
	sitemapURLs := sitemaps.FetchAll(ctx, robotsHints)
	r.logger.Info().Int("count", len(sitemapURLs)).Msg("Sitemap URLs discovered")

	seeds := []string{NormalizeURL(r.job.StartURL)}
	for _, raw := range sitemapURLs {
		normalized := NormalizeURL(raw)
		if normalized == "" {
			continue
		}
		if IsInternalURL(normalized, r.registeredDomain) && IsCrawlableURL(normalized) {
			seeds = append(seeds, normalized)
		}
	}

	for _, seedURL := range seeds {
		if seedURL != "" && !r.queued[seedURL] {
			r.frontier = append(r.frontier, frontierEntry{url: seedURL, depth: 0})
			r.queued[seedURL] = true
		}
	}
}

// nextBatch drains up to maxConcurrent unvisited entries off the frontier,
// marking them visited. The batch is capped so the visited set never exceeds
// the job's page budget.
func (r *crawlRun) nextBatch() []frontierEntry {
	limit := r.maxConcurrent
	if remaining := r.job.MaxPages - len(r.visited); remaining < limit {
		limit = remaining
	}

	var batch []frontierEntry
	for len(r.frontier) > 0 && len(batch) < limit {
		entry := r.frontier[0]
		r.frontier = r.frontier[1:]
		if r.visited[entry.url] {
			continue
		}
		r.visited[entry.url] = true
		batch = append(batch, entry)
	}
	return batch
}

// crawlPage fetches one URL: semaphore, rate limiter, robots gate, fetch,
// link extraction.
func (r *crawlRun) crawlPage(ctx context.Context, entry frontierEntry) *pageOutcome {
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	if err := r.limiter.Acquire(ctx, r.baseHost); err != nil {
		return &pageOutcome{skipped: true}
	}

	if r.robots != nil && !r.robots.IsAllowed(entry.url) {
		r.logger.Debug().Str("url", entry.url).Msg("Blocked by robots.txt")
		return &pageOutcome{skipped: true}
	}

	result := r.fetcher.Fetch(ctx, entry.url)

	var links []string
	if result.IsSuccess() && result.HTML != "" {
		links = r.extractInternalLinks(result.HTML, result.FinalURL)
	}

	return &pageOutcome{result: result, links: links}
}

// processOutcome updates stats, emits the page callback and enqueues
// discovered links. Callback errors are logged, never fatal.
func (r *crawlRun) processOutcome(ctx context.Context, entry frontierEntry, outcome *pageOutcome) {
	if outcome == nil || outcome.skipped {
		return
	}

	result := outcome.result
	if result.IsSuccess() {
		r.stats.PagesCrawled++
	} else {
		r.stats.PagesFailed++
		r.failed[entry.url] = true
	}

	if r.sink != nil {
		if err := r.sink.OnPageCrawled(ctx, result, entry.depth); err != nil {
			r.logger.Error().Err(err).Str("url", entry.url).Msg("Page callback failed")
		}
	}

	if entry.depth < r.job.MaxDepth {
		for _, link := range outcome.links {
			if !r.queued[link] && !r.visited[link] {
				r.frontier = append(r.frontier, frontierEntry{url: link, depth: entry.depth + 1})
				r.queued[link] = true
			}
		}
	}
}

// extractInternalLinks parses anchors out of the page and keeps the
// internal, crawlable ones, normalized and resolved against the final URL.
func (r *crawlRun) extractInternalLinks(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		r.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse HTML for links")
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}
		resolved := ResolveURL(pageURL, href)
		if resolved == "" {
			return
		}
		if IsInternalURL(resolved, r.registeredDomain) && IsCrawlableURL(resolved) {
			links = append(links, resolved)
		}
	})
	return links
}
