package models

import "time"

// LinkTypeHyperlink is the only link type the analyzer currently emits.
const LinkTypeHyperlink = "hyperlink"

// MaxLinksPerPage caps how many outgoing links are persisted per page.
const MaxLinksPerPage = 200

// Link is one outgoing link from a crawled page, resolved to an absolute URL.
type Link struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id" badgerhold:"index"`
	PageID     string    `json:"page_id" badgerhold:"index"`
	TargetURL  string    `json:"target_url" badgerhold:"index"`
	AnchorText string    `json:"anchor_text,omitempty"`
	IsInternal bool      `json:"is_internal"`
	IsFollowed bool      `json:"is_followed"`
	LinkType   string    `json:"link_type"`
	CreatedAt  time.Time `json:"created_at"`
}
