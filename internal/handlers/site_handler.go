package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// SiteHandler serves registered sites.
type SiteHandler struct {
	sites  interfaces.SiteStorage
	logger arbor.ILogger
}

func NewSiteHandler(sites interfaces.SiteStorage, logger arbor.ILogger) *SiteHandler {
	return &SiteHandler{
		sites:  sites,
		logger: logger,
	}
}

// ListSitesHandler returns all active sites, newest first.
// GET /api/v1/sites
func (h *SiteHandler) ListSitesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sites, err := h.sites.GetAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sites")
		WriteError(w, http.StatusInternalServerError, "Failed to list sites")
		return
	}

	if sites == nil {
		sites = []*models.Site{}
	}
	WriteJSON(w, http.StatusOK, sites)
}

// GetSiteHandler returns a single site by ID.
// GET /api/v1/sites/{id}
func (h *SiteHandler) GetSiteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	siteID := PathParam(r, "/api/v1/sites/")
	if siteID == "" {
		WriteError(w, http.StatusBadRequest, "Site ID is required")
		return
	}

	site, err := h.sites.GetByID(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, models.ErrSiteNotFound) {
			WriteError(w, http.StatusNotFound, "Site "+siteID+" not found")
			return
		}
		h.logger.Error().Err(err).Str("site_id", siteID).Msg("Failed to load site")
		WriteError(w, http.StatusInternalServerError, "Failed to load site")
		return
	}

	WriteJSON(w, http.StatusOK, site)
}
