package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// maxReportOpportunities bounds the keyword table in the report; the full
// list stays available through the API.
const maxReportOpportunities = 10

// Service assembles site SEO reports as markdown and exports them as HTML
// or PDF.
type Service struct {
	logger  arbor.ILogger
	storage interfaces.StorageManager
}

// NewService creates the report service.
func NewService(logger arbor.ILogger, storage interfaces.StorageManager) *Service {
	return &Service{
		logger:  logger,
		storage: storage,
	}
}

// BuildMarkdown assembles the full report for a site: header, score table,
// unresolved issues grouped by severity, top keyword opportunities and the
// latest crawl's stats. Requires a completed crawl; without a site score it
// returns models.ErrScoreNotFound.
func (s *Service) BuildMarkdown(ctx context.Context, siteID string) (string, error) {
	site, err := s.storage.SiteStorage().GetByID(ctx, siteID)
	if err != nil {
		return "", err
	}
	score, err := s.storage.ScoreStorage().GetSiteScore(ctx, siteID)
	if err != nil {
		return "", err
	}

	resolved := false
	issues, err := s.storage.IssueStorage().GetForSite(ctx, siteID, nil, &resolved, 0, 0)
	if err != nil {
		return "", fmt.Errorf("loading issues: %w", err)
	}
	opportunities, err := s.storage.KeywordStorage().GetOpportunities(ctx, siteID, 0, maxReportOpportunities)
	if err != nil {
		return "", fmt.Errorf("loading keyword opportunities: %w", err)
	}
	jobs, err := s.storage.CrawlJobStorage().GetRecentForSite(ctx, siteID, 1)
	if err != nil {
		return "", fmt.Errorf("loading crawl history: %w", err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# SEO Report - %s\n\n", site.Domain))
	sb.WriteString(fmt.Sprintf("**Site**: %s\n", site.Domain))
	sb.WriteString(fmt.Sprintf("**Pages Analyzed**: %d\n", site.PageCount))
	if site.LastCrawlAt != nil {
		sb.WriteString(fmt.Sprintf("**Last Crawl**: %s\n", site.LastCrawlAt.Format("2 January 2006 3:04 PM")))
	}
	sb.WriteString(fmt.Sprintf("**Generated**: %s\n\n", time.Now().Format("2 January 2006 3:04 PM")))

	s.writeScores(&sb, score)
	s.writeIssues(ctx, &sb, issues)
	s.writeOpportunities(&sb, opportunities)
	if len(jobs) > 0 {
		s.writeCrawlStats(&sb, jobs[0])
	}

	s.logger.Debug().
		Str("site_id", siteID).
		Int("issues", len(issues)).
		Int("opportunities", len(opportunities)).
		Msg("Report assembled")

	return sb.String(), nil
}

func (s *Service) writeScores(sb *strings.Builder, score *models.Score) {
	sb.WriteString("## Scores\n\n")
	sb.WriteString("| Dimension | Score |\n")
	sb.WriteString("|-----------|------:|\n")
	sb.WriteString(fmt.Sprintf("| Overall | %.1f |\n", score.OverallScore))
	sb.WriteString(fmt.Sprintf("| Technical | %.1f |\n", score.TechnicalScore))
	sb.WriteString(fmt.Sprintf("| Content | %.1f |\n", score.ContentScore))
	sb.WriteString(fmt.Sprintf("| Authority | %.1f |\n", score.AuthorityScore))
	sb.WriteString(fmt.Sprintf("| Internal Linking | %.1f |\n", score.LinkingScore))
	sb.WriteString(fmt.Sprintf("| AI Visibility | %.1f |\n\n", score.AIVisibilityScore))
}

// severityOrder fixes the report's section order, most urgent first.
var severityOrder = []models.IssueSeverity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityInfo,
}

func (s *Service) writeIssues(ctx context.Context, sb *strings.Builder, issues []*models.Issue) {
	sb.WriteString(fmt.Sprintf("## Issues (%d unresolved)\n\n", len(issues)))
	if len(issues) == 0 {
		sb.WriteString("No unresolved issues.\n\n")
		return
	}

	grouped := make(map[models.IssueSeverity][]*models.Issue)
	for _, issue := range issues {
		grouped[issue.Severity] = append(grouped[issue.Severity], issue)
	}

	urls := make(map[string]string)
	location := func(issue *models.Issue) string {
		if issue.PageID == "" {
			return "site-wide"
		}
		if url, ok := urls[issue.PageID]; ok {
			return url
		}
		page, err := s.storage.PageStorage().GetByID(ctx, issue.PageID)
		if err != nil {
			return "unknown page"
		}
		urls[issue.PageID] = page.URL
		return page.URL
	}

	for _, severity := range severityOrder {
		group := grouped[severity]
		if len(group) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", capitalize(string(severity)), len(group)))
		for _, issue := range group {
			sb.WriteString(fmt.Sprintf("- **%s** (%s)\n", issue.Title, location(issue)))
			sb.WriteString(fmt.Sprintf("  %s %s\n", issue.Description, issue.Recommendation))
		}
		sb.WriteString("\n")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *Service) writeOpportunities(sb *strings.Builder, keywords []*models.Keyword) {
	sb.WriteString("## Keyword Opportunities\n\n")
	if len(keywords) == 0 {
		sb.WriteString("No keyword opportunities identified.\n\n")
		return
	}

	sb.WriteString("| Keyword | Frequency | Est. Volume | Difficulty | Current Rank | Opportunity |\n")
	sb.WriteString("|---------|----------:|------------:|-----------:|-------------:|------------:|\n")
	for _, kw := range keywords {
		rank := "-"
		if kw.CurrentRank != nil {
			rank = fmt.Sprintf("%d", *kw.CurrentRank)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %.1f |\n",
			kw.Keyword, kw.Frequency, kw.EstimatedVolume, kw.EstimatedDifficulty,
			rank, kw.OpportunityScore))
	}
	sb.WriteString("\n")
}

func (s *Service) writeCrawlStats(sb *strings.Builder, job *models.CrawlJob) {
	sb.WriteString("## Latest Crawl\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|------:|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", job.Status))
	sb.WriteString(fmt.Sprintf("| Pages crawled | %d |\n", job.PagesCrawled))
	sb.WriteString(fmt.Sprintf("| Pages failed | %d |\n", job.PagesFailed))
	if job.StartedAt != nil && job.CompletedAt != nil {
		duration := job.CompletedAt.Sub(*job.StartedAt).Round(time.Second)
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", duration))
		sb.WriteString(fmt.Sprintf("| Completed | %s |\n", job.CompletedAt.Format("2 January 2006 3:04 PM")))
	}
	sb.WriteString("\n")
}

// RenderHTML converts a markdown report into a standalone styled document.
func (s *Service) RenderHTML(markdown string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("rendering report HTML: %w", err)
	}
	return []byte(wrapHTMLDocument(buf.String())), nil
}

func wrapHTMLDocument(content string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>SEO Report</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
      line-height: 1.6;
      color: #333;
      max-width: 900px;
      margin: 0 auto;
      padding: 20px;
      background-color: #f9f9f9;
    }
    .content {
      background-color: #fff;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 1px 3px rgba(0,0,0,0.1);
    }
    h1 { color: #1a1a1a; font-size: 24px; margin-top: 0; border-bottom: 2px solid #eee; padding-bottom: 10px; }
    h2 { color: #2a2a2a; font-size: 20px; margin-top: 24px; }
    h3 { color: #3a3a3a; font-size: 16px; margin-top: 20px; }
    p { margin: 12px 0; }
    ul, ol { padding-left: 24px; margin: 12px 0; }
    li { margin: 6px 0; }
    strong { color: #1a1a1a; }
    table { border-collapse: collapse; width: 100%; margin: 16px 0; }
    th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
    th { background: #f4f4f4; font-weight: 600; }
    hr { border: none; border-top: 1px solid #eee; margin: 24px 0; }
  </style>
</head>
<body>
  <div class="content">
    ` + content + `
  </div>
</body>
</html>`
}
