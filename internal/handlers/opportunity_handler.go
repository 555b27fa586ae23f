package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

const (
	defaultOpportunityLimit = 50
	maxOpportunityLimit     = 200
)

// OpportunityHandler serves keyword opportunities ranked by score.
type OpportunityHandler struct {
	sites    interfaces.SiteStorage
	keywords interfaces.KeywordStorage
	logger   arbor.ILogger
}

func NewOpportunityHandler(sites interfaces.SiteStorage, keywords interfaces.KeywordStorage, logger arbor.ILogger) *OpportunityHandler {
	return &OpportunityHandler{
		sites:    sites,
		keywords: keywords,
		logger:   logger,
	}
}

// OpportunitiesResponse lists a domain's keyword opportunities.
type OpportunitiesResponse struct {
	Domain        string            `json:"domain"`
	TotalKeywords int               `json:"total_keywords"`
	Opportunities []*models.Keyword `json:"opportunities"`
}

// GetOpportunitiesHandler returns keyword opportunities for a domain,
// highest opportunity score first.
// GET /api/v1/opportunities/{domain}?min_score=40&limit=50
func (h *OpportunityHandler) GetOpportunitiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/opportunities/")
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

	minScore := 0.0
	if v := r.URL.Query().Get("min_score"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			minScore = parsed
		}
	}

	limit := defaultOpportunityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxOpportunityLimit {
				limit = maxOpportunityLimit
			}
		}
	}

	opportunities, err := h.keywords.GetOpportunities(r.Context(), site.ID, minScore, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to list opportunities")
		WriteError(w, http.StatusInternalServerError, "Failed to list opportunities")
		return
	}

	total, err := h.keywords.CountForSite(r.Context(), site.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to count keywords")
		total = len(opportunities)
	}

	if opportunities == nil {
		opportunities = []*models.Keyword{}
	}

	WriteJSON(w, http.StatusOK, OpportunitiesResponse{
		Domain:        domain,
		TotalKeywords: total,
		Opportunities: opportunities,
	})
}
