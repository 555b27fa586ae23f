package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/common"
)

// HealthHandler serves service health and version endpoints.
type HealthHandler struct {
	logger arbor.ILogger
}

func NewHealthHandler(logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
	}
}

// HealthCheckHandler returns health check status with version information.
// GET /health
func (h *HealthHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// NotFoundHandler handles unmatched API routes with a JSON response.
func (h *HealthHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
