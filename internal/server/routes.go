package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - crawl progress events
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Crawl submission and job management
	mux.HandleFunc("/api/v1/crawl", s.app.CrawlHandler.SubmitHandler)  // POST - submit crawl
	mux.HandleFunc("/api/v1/crawl/job/", s.handleCrawlJobRoutes)       // GET /{id}, POST /{id}/cancel

	// API routes - Reports
	mux.HandleFunc("/api/v1/report/", s.handleReportRoutes) // GET /{domain}, GET /{domain}/export

	// API routes - Pages
	mux.HandleFunc("/api/v1/pages/", s.app.PageHandler.ListPagesHandler) // GET /{domain}
	mux.HandleFunc("/api/v1/page/", s.app.PageHandler.GetPageHandler)    // GET /{id}

	// API routes - Issues and opportunities
	mux.HandleFunc("/api/v1/issues/", s.app.IssueHandler.GetIssuesHandler)                      // GET /{domain}
	mux.HandleFunc("/api/v1/opportunities/", s.app.OpportunityHandler.GetOpportunitiesHandler)  // GET /{domain}

	// API routes - Sites and scores
	mux.HandleFunc("/api/v1/sites", s.app.SiteHandler.ListSitesHandler)    // GET - list sites
	mux.HandleFunc("/api/v1/sites/", s.app.SiteHandler.GetSiteHandler)     // GET /{id}
	mux.HandleFunc("/api/v1/scores/", s.app.ScoreHandler.GetScoresHandler) // GET /{domain}

	// Health check
	mux.HandleFunc("/health", s.app.HealthHandler.HealthCheckHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.HealthHandler.NotFoundHandler)

	return mux
}

// handleCrawlJobRoutes routes job status and cancellation requests
func (s *Server) handleCrawlJobRoutes(w http.ResponseWriter, r *http.Request) {
	// POST /api/v1/crawl/job/{id}/cancel
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel") {
		s.app.CrawlHandler.CancelJobHandler(w, r)
		return
	}

	// GET /api/v1/crawl/job/{id}
	s.app.CrawlHandler.JobStatusHandler(w, r)
}

// handleReportRoutes routes report retrieval and export requests
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	// GET /api/v1/report/{domain}/export
	if strings.HasSuffix(r.URL.Path, "/export") {
		s.app.ReportHandler.ExportReportHandler(w, r)
		return
	}

	// GET /api/v1/report/{domain}
	s.app.ReportHandler.GetReportHandler(w, r)
}
