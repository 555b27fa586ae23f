package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// IssueHandler serves detected SEO issues.
type IssueHandler struct {
	sites  interfaces.SiteStorage
	issues interfaces.IssueStorage
	logger arbor.ILogger
}

func NewIssueHandler(sites interfaces.SiteStorage, issues interfaces.IssueStorage, logger arbor.ILogger) *IssueHandler {
	return &IssueHandler{
		sites:  sites,
		issues: issues,
		logger: logger,
	}
}

// IssueCounts tallies unresolved issues per severity.
type IssueCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the sum across all severities.
func (c IssueCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

func issueCountsFrom(counts map[models.IssueSeverity]int) IssueCounts {
	return IssueCounts{
		Critical: counts[models.SeverityCritical],
		High:     counts[models.SeverityHigh],
		Medium:   counts[models.SeverityMedium],
		Low:      counts[models.SeverityLow],
		Info:     counts[models.SeverityInfo],
	}
}

// IssuesResponse lists a domain's issues with severity tallies.
type IssuesResponse struct {
	Domain           string          `json:"domain"`
	TotalIssues      int             `json:"total_issues"`
	CountsBySeverity IssueCounts     `json:"counts_by_severity"`
	Issues           []*models.Issue `json:"issues"`
}

// GetIssuesHandler returns detected issues for a domain, filterable by
// severity and resolution state.
// GET /api/v1/issues/{domain}?severity=critical&resolved=false&page=0&page_size=10
func (h *IssueHandler) GetIssuesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/issues/")
	if domain == "" {
		WriteError(w, http.StatusBadRequest, "Domain is required")
		return
	}

	site, err := h.sites.GetByDomain(r.Context(), domain)
	if err != nil {
		if errors.Is(err, models.ErrSiteNotFound) {
			WriteError(w, http.StatusNotFound, "Domain '"+domain+"' not found")
			return
		}
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to load site")
		WriteError(w, http.StatusInternalServerError, "Failed to load site")
		return
	}

	var severity *models.IssueSeverity
	if v := r.URL.Query().Get("severity"); v != "" {
		s := models.IssueSeverity(v)
		if !s.Valid() {
			WriteError(w, http.StatusBadRequest, "Invalid severity '"+v+"'. Use: critical, high, medium, low, info")
			return
		}
		severity = &s
	}

	resolved := false
	if v := r.URL.Query().Get("resolved"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			resolved = parsed
		}
	}

	page, pageSize := GetPaginationParams(r)

	issues, err := h.issues.GetForSite(r.Context(), site.ID, severity, &resolved, page*pageSize, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to list issues")
		WriteError(w, http.StatusInternalServerError, "Failed to list issues")
		return
	}

	counts, err := h.issues.CountBySeverity(r.Context(), site.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to count issues")
		counts = map[models.IssueSeverity]int{}
	}

	if issues == nil {
		issues = []*models.Issue{}
	}

	summary := issueCountsFrom(counts)
	WriteJSON(w, http.StatusOK, IssuesResponse{
		Domain:           domain,
		TotalIssues:      summary.Total(),
		CountsBySeverity: summary,
		Issues:           issues,
	})
}
