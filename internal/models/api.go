package models

import (
	"net/url"
	"strings"
)

// Crawl submission defaults applied when the request omits a field.
const (
	DefaultCrawlMaxDepth     = 5
	DefaultCrawlMaxPages     = 1000
	DefaultCrawlRateLimitRPS = 5.0
)

// CrawlRequest is the submission payload for starting a crawl.
type CrawlRequest struct {
	URL            string  `json:"url" validate:"required"`
	MaxDepth       int     `json:"max_depth" validate:"omitempty,min=1,max=10"`
	MaxPages       int     `json:"max_pages" validate:"omitempty,min=1,max=50000"`
	RateLimitRPS   float64 `json:"rate_limit_rps" validate:"omitempty,gte=0.1,lte=50"`
	UseJSRendering bool    `json:"use_js_rendering"`
	RespectRobots  *bool   `json:"respect_robots"`
}

// Normalize applies defaults and canonicalizes the start URL: scheme-less
// input is prefixed with https:// and trailing slashes are stripped.
func (r *CrawlRequest) Normalize() {
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		r.URL = "https://" + r.URL
	}
	r.URL = strings.TrimRight(r.URL, "/")
	if r.MaxDepth == 0 {
		r.MaxDepth = DefaultCrawlMaxDepth
	}
	if r.MaxPages == 0 {
		r.MaxPages = DefaultCrawlMaxPages
	}
	if r.RateLimitRPS == 0 {
		r.RateLimitRPS = DefaultCrawlRateLimitRPS
	}
	if r.RespectRobots == nil {
		t := true
		r.RespectRobots = &t
	}
}

// Domain extracts the full host (subdomain included, port and case dropped)
// from the normalized start URL.
func (r *CrawlRequest) Domain() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Hostname()), nil
}

// CrawlResponse acknowledges an accepted crawl submission.
type CrawlResponse struct {
	JobID   string `json:"job_id"`
	SiteID  string `json:"site_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Domain  string `json:"domain"`
}
