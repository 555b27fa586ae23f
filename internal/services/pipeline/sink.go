package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// pageSink persists each crawled page as the crawler produces it: the page
// row, its outgoing internal links, a provisional score and the page-level
// issues. The crawler invokes it sequentially, so the counters need no lock.
type pageSink struct {
	svc *Service
	job *models.CrawlJob

	crawled int
	failed  int
}

func newPageSink(svc *Service, job *models.CrawlJob) *pageSink {
	return &pageSink{svc: svc, job: job}
}

func (p *pageSink) OnPageCrawled(ctx context.Context, result *models.CrawlResult, depth int) error {
	analysis, err := p.svc.analyzer.Analyze(result)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", result.URL, err)
	}

	page, err := p.svc.storage.PageStorage().Upsert(ctx, p.pageFrom(result, analysis, depth))
	if err != nil {
		return fmt.Errorf("storing page %s: %w", result.URL, err)
	}

	if err := p.svc.storage.LinkStorage().ReplaceForPage(ctx, p.job.SiteID, page.ID, internalLinks(analysis)); err != nil {
		return fmt.Errorf("storing links for %s: %w", result.URL, err)
	}

	// Inbound counts only resolve once the whole site is crawled; the
	// completion pass rescores every page with the real counts.
	score := p.svc.scorer.ScorePage(page, 0)
	if err := p.svc.storage.ScoreStorage().UpsertPageScore(ctx, score); err != nil {
		return fmt.Errorf("storing score for %s: %w", result.URL, err)
	}

	issues := p.svc.recommender.ForPage(page)
	for _, issue := range issues {
		issue.JobID = p.job.ID
	}
	if err := p.svc.storage.IssueStorage().ReplaceForPage(ctx, p.job.SiteID, page.ID, issues); err != nil {
		return fmt.Errorf("storing issues for %s: %w", result.URL, err)
	}

	if result.IsSuccess() {
		p.crawled++
		if err := p.svc.storage.CrawlJobStorage().IncrementCrawled(ctx, p.job.ID); err != nil {
			p.svc.logger.Warn().Err(err).Str("job_id", p.job.ID).Msg("Failed to record crawl progress")
		}
	} else {
		p.failed++
	}

	p.svc.events.Publish(interfaces.CrawlEvent{
		Type:         interfaces.EventPageCrawled,
		JobID:        p.job.ID,
		SiteID:       p.job.SiteID,
		URL:          result.URL,
		PagesCrawled: p.crawled,
		PagesFailed:  p.failed,
	})
	return nil
}

// pageFrom maps the extracted signals plus fetch timings onto a page row.
func (p *pageSink) pageFrom(result *models.CrawlResult, a *models.PageAnalysis, depth int) *models.Page {
	return &models.Page{
		SiteID:          p.job.SiteID,
		URL:             a.URL,
		FinalURL:        a.FinalURL,
		StatusCode:      a.StatusCode,
		Title:           a.Title,
		MetaDescription: a.MetaDescription,
		CanonicalURL:    a.CanonicalURL,
		IsCanonical:     a.IsCanonical,
		MetaRobots:      a.MetaRobots,
		IsIndexable:     a.IsIndexable,
		Lang:            a.Lang,
		HasHreflang:     a.HasHreflang,

		H1s: a.H1s,
		H2s: a.H2s,
		H3s: a.H3s,
		H4s: a.H4s,
		H5s: a.H5s,
		H6s: a.H6s,

		WordCount:          a.WordCount,
		ReadingTimeSeconds: a.ReadingTimeSeconds,
		TextHTMLRatio:      a.TextHTMLRatio,

		ImagesTotal:      a.ImagesTotal,
		ImagesMissingAlt: a.ImagesMissingAlt,

		InternalLinksCount: a.InternalLinksCount,
		ExternalLinksCount: a.ExternalLinksCount,

		HasSchemaMarkup: a.HasSchemaMarkup,
		SchemaTypes:     a.SchemaTypes,
		OGData:          a.OGData,
		TwitterData:     a.TwitterData,

		HasViewport:   a.HasViewport,
		IsHTTPS:       a.IsHTTPS,
		LoadTimeMS:    result.LoadTimeMS,
		PageSizeBytes: result.PageSizeBytes,

		ContentText: capRunes(a.ContentText, models.MaxContentTextLen),
		Keywords:    a.Keywords,

		Depth:     depth,
		CrawledAt: time.Now().UTC(),
	}
}

// internalLinks selects the page's same-site links for the link graph,
// capped at the per-page row limit.
func internalLinks(a *models.PageAnalysis) []*models.Link {
	links := make([]*models.Link, 0, len(a.Links))
	for i := range a.Links {
		if !a.Links[i].IsInternal {
			continue
		}
		links = append(links, &models.Link{
			TargetURL:  a.Links[i].TargetURL,
			AnchorText: a.Links[i].AnchorText,
			IsInternal: true,
			IsFollowed: a.Links[i].IsFollowed,
			LinkType:   models.LinkTypeHyperlink,
		})
		if len(links) == models.MaxLinksPerPage {
			break
		}
	}
	return links
}

// capRunes shortens s to at most max runes, cutting on rune boundaries.
func capRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
