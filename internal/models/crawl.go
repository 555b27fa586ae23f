package models

import "time"

// CrawlResult is the outcome of fetching one URL. It is transient; the
// analyzer consumes it and only derived signals are persisted.
type CrawlResult struct {
	URL           string            `json:"url"`
	FinalURL      string            `json:"final_url"`
	StatusCode    int               `json:"status_code"`
	HTML          string            `json:"-"`
	Headers       map[string]string `json:"headers,omitempty"`
	LoadTimeMS    int64             `json:"load_time_ms"`
	PageSizeBytes int               `json:"page_size_bytes"`
	Error         error             `json:"-"`
}

// IsSuccess reports whether the fetch produced a usable page: no transport
// error and a 2xx or 3xx status.
func (r *CrawlResult) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 400
}

// CrawlStats summarizes a finished crawl.
type CrawlStats struct {
	PagesCrawled int       `json:"pages_crawled"`
	PagesFailed  int       `json:"pages_failed"`
	PagesQueued  int       `json:"pages_queued"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// Duration returns the crawl's wall-clock duration.
func (s *CrawlStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
