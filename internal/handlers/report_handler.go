package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

const reportOpportunityLimit = 10

// ReportHandler assembles domain reports and serves export downloads.
type ReportHandler struct {
	storage interfaces.StorageManager
	reports interfaces.ReportService
	logger  arbor.ILogger
}

func NewReportHandler(storage interfaces.StorageManager, reports interfaces.ReportService, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		storage: storage,
		reports: reports,
		logger:  logger,
	}
}

// PagesOverview summarizes crawl coverage for a report.
type PagesOverview struct {
	TotalPages  int        `json:"total_pages"`
	LastCrawled *time.Time `json:"last_crawled"`
}

// ReportResponse is a comprehensive SEO report for a domain.
type ReportResponse struct {
	Domain           string            `json:"domain"`
	Site             *models.Site      `json:"site"`
	Score            *models.Score     `json:"score"`
	IssueSummary     IssueCounts       `json:"issue_summary"`
	RecentJob        *models.CrawlJob  `json:"recent_job"`
	TopOpportunities []*models.Keyword `json:"top_opportunities"`
	PagesOverview    PagesOverview     `json:"pages_overview"`
}

// GetReportHandler returns a comprehensive report for a domain covering
// scores, issue tallies, top opportunities and the most recent crawl.
// GET /api/v1/report/{domain}
func (h *ReportHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/report/")
	if domain == "" {
		WriteError(w, http.StatusBadRequest, "Domain is required")
		return
	}

	ctx := r.Context()

	site, err := h.storage.SiteStorage().GetByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, models.ErrSiteNotFound) {
			WriteError(w, http.StatusNotFound, "Domain '"+domain+"' not found. Start a crawl first.")
			return
		}
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to load site")
		WriteError(w, http.StatusInternalServerError, "Failed to load site")
		return
	}

	var score *models.Score
	if s, err := h.storage.ScoreStorage().GetSiteScore(ctx, site.ID); err == nil {
		score = s
	} else if !errors.Is(err, models.ErrScoreNotFound) {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to load scores")
	}

	counts, err := h.storage.IssueStorage().CountBySeverity(ctx, site.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to count issues")
		counts = map[models.IssueSeverity]int{}
	}

	opportunities, err := h.storage.KeywordStorage().GetOpportunities(ctx, site.ID, 0, reportOpportunityLimit)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to load opportunities")
	}
	if opportunities == nil {
		opportunities = []*models.Keyword{}
	}

	var recentJob *models.CrawlJob
	if jobs, err := h.storage.CrawlJobStorage().GetRecentForSite(ctx, site.ID, 1); err == nil && len(jobs) > 0 {
		recentJob = jobs[0]
	}

	pageCount, err := h.storage.PageStorage().CountForSite(ctx, site.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to count pages")
	}

	WriteJSON(w, http.StatusOK, ReportResponse{
		Domain:           domain,
		Site:             site,
		Score:            score,
		IssueSummary:     issueCountsFrom(counts),
		RecentJob:        recentJob,
		TopOpportunities: opportunities,
		PagesOverview: PagesOverview{
			TotalPages:  pageCount,
			LastCrawled: site.LastCrawlAt,
		},
	})
}

// ExportReportHandler renders the domain report as a downloadable document.
// GET /api/v1/report/{domain}/export?format=markdown|html|pdf
func (h *ReportHandler) ExportReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/report/")
	if domain == "" {
		WriteError(w, http.StatusBadRequest, "Domain is required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	switch format {
	case "markdown", "html", "pdf":
	default:
		WriteError(w, http.StatusBadRequest, "Invalid format '"+format+"'. Use: markdown, html, pdf")
		return
	}

	ctx := r.Context()

	site, err := h.storage.SiteStorage().GetByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, models.ErrSiteNotFound) {
			WriteError(w, http.StatusNotFound, "Domain '"+domain+"' not found. Start a crawl first.")
			return
		}
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to load site")
		WriteError(w, http.StatusInternalServerError, "Failed to load site")
		return
	}

	markdown, err := h.reports.BuildMarkdown(ctx, site.ID)
	if err != nil {
		if errors.Is(err, models.ErrScoreNotFound) {
			WriteError(w, http.StatusNotFound, "No scores found for '"+domain+"'. Run a crawl first.")
			return
		}
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to build report")
		WriteError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	switch format {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="seo-report-`+domain+`.md"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(markdown))
	case "html":
		html, err := h.reports.RenderHTML(markdown)
		if err != nil {
			h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to render HTML report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="seo-report-`+domain+`.html"`)
		w.WriteHeader(http.StatusOK)
		w.Write(html)
	case "pdf":
		pdf, err := h.reports.RenderPDF(markdown, "SEO Report - "+domain)
		if err != nil {
			h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to render PDF report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="seo-report-`+domain+`.pdf"`)
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	}
}
