package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

// CrawlHandler handles crawl submission and job lifecycle requests.
type CrawlHandler struct {
	pipeline interfaces.PipelineService
	jobs     interfaces.CrawlJobStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewCrawlHandler(pipeline interfaces.PipelineService, jobs interfaces.CrawlJobStorage, logger arbor.ILogger) *CrawlHandler {
	return &CrawlHandler{
		pipeline: pipeline,
		jobs:     jobs,
		validate: validator.New(),
		logger:   logger,
	}
}

// SubmitHandler starts a new crawl for the submitted URL.
// POST /api/v1/crawl
func (h *CrawlHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.pipeline.SubmitCrawl(r.Context(), &req)
	if err != nil {
		var conflict *models.JobConflictError
		if errors.As(err, &conflict) {
			WriteError(w, http.StatusConflict, conflict.Error())
			return
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to submit crawl")
		WriteError(w, http.StatusInternalServerError, "Failed to submit crawl")
		return
	}

	h.logger.Info().
		Str("job_id", resp.JobID).
		Str("domain", resp.Domain).
		Msg("Crawl submitted")

	WriteJSON(w, http.StatusAccepted, resp)
}

// JobStatusHandler returns the status and progress counters of a crawl job.
// GET /api/v1/crawl/job/{id}
func (h *CrawlHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathParam(r, "/api/v1/crawl/job/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Crawl job "+jobID+" not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// CancelJobHandler requests cancellation of a pending or running job.
// POST /api/v1/crawl/job/{id}/cancel
func (h *CrawlHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := PathParam(r, "/api/v1/crawl/job/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	if err := h.pipeline.CancelJob(r.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, models.ErrJobNotFound):
			WriteError(w, http.StatusNotFound, "Crawl job "+jobID+" not found")
		case errors.Is(err, models.ErrInvalidTransition):
			WriteError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
			WriteError(w, http.StatusInternalServerError, "Failed to cancel job")
		}
		return
	}

	h.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelling",
		"job_id":  jobID,
		"message": "Cancellation requested for job " + jobID,
	})
}
