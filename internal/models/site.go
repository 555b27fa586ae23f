package models

import "time"

// CrawlFrequencyManual disables scheduled re-crawls; crawls run only when submitted.
const CrawlFrequencyManual = "manual"

// DefaultSiteMaxPages caps how many pages a crawl may persist for a site
// unless the submission overrides it.
const DefaultSiteMaxPages = 1000

// Site represents a domain registered for crawling and analysis.
type Site struct {
	ID             string     `json:"id"`
	Domain         string     `json:"domain" badgerhold:"unique"`
	Name           string     `json:"name,omitempty"`
	RootURL        string     `json:"root_url,omitempty"`
	IsActive       bool       `json:"is_active" badgerhold:"index"`
	CrawlFrequency string     `json:"crawl_frequency"`
	MaxPages       int        `json:"max_pages"`
	PageCount      int        `json:"page_count"`
	LastCrawlAt    *time.Time `json:"last_crawl_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
