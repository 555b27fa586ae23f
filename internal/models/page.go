package models

import (
	"time"
	"unicode/utf8"
)

// MaxContentTextLen bounds the extracted body text persisted per page.
const MaxContentTextLen = 50000

// Page holds the on-page SEO signals persisted for one crawled URL.
// A page is unique per (SiteID, URL); re-crawls upsert in place.
type Page struct {
	ID              string `json:"id"`
	SiteID          string `json:"site_id" badgerhold:"index"`
	URL             string `json:"url" badgerhold:"index"`
	FinalURL        string `json:"final_url"`
	StatusCode      int    `json:"status_code" badgerhold:"index"`
	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	CanonicalURL    string `json:"canonical_url,omitempty"`
	IsCanonical     bool   `json:"is_canonical"`
	MetaRobots      string `json:"meta_robots,omitempty"`
	IsIndexable     bool   `json:"is_indexable"`
	Lang            string `json:"lang,omitempty"`
	HasHreflang     bool   `json:"has_hreflang"`

	H1s []string `json:"h1s,omitempty"`
	H2s []string `json:"h2s,omitempty"`
	H3s []string `json:"h3s,omitempty"`
	H4s []string `json:"h4s,omitempty"`
	H5s []string `json:"h5s,omitempty"`
	H6s []string `json:"h6s,omitempty"`

	WordCount          int     `json:"word_count"`
	ReadingTimeSeconds int     `json:"reading_time_seconds"`
	TextHTMLRatio      float64 `json:"text_html_ratio"`

	ImagesTotal      int `json:"images_total"`
	ImagesMissingAlt int `json:"images_missing_alt"`

	InternalLinksCount int `json:"internal_links_count"`
	ExternalLinksCount int `json:"external_links_count"`

	HasSchemaMarkup bool              `json:"has_schema_markup"`
	SchemaTypes     []string          `json:"schema_types,omitempty"`
	OGData          map[string]string `json:"og_data,omitempty"`
	TwitterData     map[string]string `json:"twitter_data,omitempty"`

	HasViewport   bool  `json:"has_viewport"`
	IsHTTPS       bool  `json:"is_https"`
	LoadTimeMS    int64 `json:"load_time_ms"`
	PageSizeBytes int   `json:"page_size_bytes"`

	// ContentText is the readable main-body text, capped at MaxContentTextLen.
	// Raw HTML is never persisted.
	ContentText string `json:"content_text,omitempty"`

	// Keywords maps each unigram and bigram found in the body text to its
	// in-page frequency. Feeds site-level keyword aggregation.
	Keywords map[string]int `json:"keywords,omitempty"`

	Depth     int       `json:"depth"`
	CrawledAt time.Time `json:"crawled_at"`
}

// TitleLength returns the character length of the title, 0 when absent.
func (p *Page) TitleLength() int {
	return utf8.RuneCountInString(p.Title)
}

// MetaDescriptionLength returns the character length of the meta description.
func (p *Page) MetaDescriptionLength() int {
	return utf8.RuneCountInString(p.MetaDescription)
}

// ImagesWithAlt returns how many images carry non-empty alt text.
func (p *Page) ImagesWithAlt() int {
	return p.ImagesTotal - p.ImagesMissingAlt
}
