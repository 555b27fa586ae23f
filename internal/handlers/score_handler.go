package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// ScoreHandler serves aggregated site scores.
type ScoreHandler struct {
	sites  interfaces.SiteStorage
	scores interfaces.ScoreStorage
	logger arbor.ILogger
}

func NewScoreHandler(sites interfaces.SiteStorage, scores interfaces.ScoreStorage, logger arbor.ILogger) *ScoreHandler {
	return &ScoreHandler{
		sites:  sites,
		scores: scores,
		logger: logger,
	}
}

// GetScoresHandler returns the latest score breakdown for a domain.
// GET /api/v1/scores/{domain}
func (h *ScoreHandler) GetScoresHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	domain := DomainParam(r, "/api/v1/scores/")
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

	score, err := h.scores.GetSiteScore(r.Context(), site.ID)
	if err != nil {
		if errors.Is(err, models.ErrScoreNotFound) {
			WriteError(w, http.StatusNotFound, "No scores found for '"+domain+"'. Run a crawl first.")
			return
		}
		h.logger.Error().Err(err).Str("domain", domain).Msg("Failed to load scores")
		WriteError(w, http.StatusInternalServerError, "Failed to load scores")
		return
	}

	WriteJSON(w, http.StatusOK, score)
}
