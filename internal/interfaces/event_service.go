package interfaces

import "time"

// EventType labels crawl progress events pushed to websocket clients.
type EventType string

const (
	EventJobStatusChanged EventType = "job_status_changed"
	EventPageCrawled      EventType = "page_crawled"
	EventCrawlCompleted   EventType = "crawl_completed"
)

// CrawlEvent is one progress update for a crawl job.
type CrawlEvent struct {
	Type         EventType `json:"type"`
	JobID        string    `json:"job_id"`
	SiteID       string    `json:"site_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	URL          string    `json:"url,omitempty"`
	PagesCrawled int       `json:"pages_crawled"`
	PagesFailed  int       `json:"pages_failed"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventService fans crawl progress out to subscribers. Publishing never
// blocks the pipeline; slow subscribers drop events.
type EventService interface {
	Publish(event CrawlEvent)
	Subscribe() (<-chan CrawlEvent, func())
	Close() error
}
