package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// PageHandler serves crawled page data.
type PageHandler struct {
	sites  interfaces.SiteStorage
	pages  interfaces.PageStorage
	logger arbor.ILogger
}

func NewPageHandler(sites interfaces.SiteStorage, pages interfaces.PageStorage, logger arbor.ILogger) *PageHandler {
	return &PageHandler{
		sites:  sites,
		pages:  pages,
		logger: logger,
	}
}

// PageSummary is the list-view projection of a crawled page.
type PageSummary struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	StatusCode         int       `json:"status_code"`
	Title              string    `json:"title,omitempty"`
	WordCount          int       `json:"word_count"`
	Depth              int       `json:"depth"`
	IsIndexable        bool      `json:"is_indexable"`
	InternalLinksCount int       `json:"internal_links_count"`
	CrawledAt          time.Time `json:"crawled_at"`
}

// PagesResponse is the paginated page list for one domain.
type PagesResponse struct {
	Domain   string         `json:"domain"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Pages    []*PageSummary `json:"pages"`
}

// PageDetailResponse is the full page record plus derived signal lengths.
type PageDetailResponse struct {
	*models.Page
	TitleLength           int `json:"title_length"`
	MetaDescriptionLength int `json:"meta_description_length"`
	ImagesWithAlt         int `json:"images_with_alt"`
}

// ListPagesHandler returns paginated page summaries for a domain, optionally
// filtered by HTTP status code.
// GET /api/v1/pages/{domain}?page=0&page_size=10&status_code=200
func (h *PageHandler) ListPagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/pages/")
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

	page, pageSize := GetPaginationParams(r)

	var statusCode *int
	if v := r.URL.Query().Get("status_code"); v != "" {
		if code, err := strconv.Atoi(v); err == nil {
			statusCode = &code
		}
	}

	pages, err := h.pages.GetForSite(r.Context(), site.ID, statusCode, page*pageSize, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to list pages")
		WriteError(w, http.StatusInternalServerError, "Failed to list pages")
		return
	}

	total, err := h.pages.CountForSite(r.Context(), site.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to count pages")
		total = len(pages)
	}

	summaries := make([]*PageSummary, 0, len(pages))
	for _, p := range pages {
		summaries = append(summaries, &PageSummary{
			ID:                 p.ID,
			URL:                p.URL,
			StatusCode:         p.StatusCode,
			Title:              p.Title,
			WordCount:          p.WordCount,
			Depth:              p.Depth,
			IsIndexable:        p.IsIndexable,
			InternalLinksCount: p.InternalLinksCount,
			CrawledAt:          p.CrawledAt,
		})
	}

	WriteJSON(w, http.StatusOK, PagesResponse{
		Domain:   domain,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    summaries,
	})
}

// GetPageHandler returns the complete SEO analysis for a single page.
// GET /api/v1/page/{id}
func (h *PageHandler) GetPageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pageID := PathParam(r, "/api/v1/page/")
	if pageID == "" {
		WriteError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	page, err := h.pages.GetByID(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, models.ErrPageNotFound) {
			WriteError(w, http.StatusNotFound, "Page "+pageID+" not found")
			return
		}
		h.logger.Error().Err(err).Str("page_id", pageID).Msg("Failed to load page")
		WriteError(w, http.StatusInternalServerError, "Failed to load page")
		return
	}

	WriteJSON(w, http.StatusOK, PageDetailResponse{
		Page:                  page,
		TitleLength:           page.TitleLength(),
		MetaDescriptionLength: page.MetaDescriptionLength(),
		ImagesWithAlt:         page.ImagesWithAlt(),
	})
}
