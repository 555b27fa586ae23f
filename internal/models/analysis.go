package models

// ExtractedLink is one outgoing link found during page analysis, resolved
// against the page's final URL.
type ExtractedLink struct {
	TargetURL  string `json:"target_url"`
	AnchorText string `json:"anchor_text,omitempty"`
	IsInternal bool   `json:"is_internal"`
	IsFollowed bool   `json:"is_followed"`
}

// PageAnalysis holds every on-page signal extracted from one fetched
// document. The pipeline maps it onto a Page row plus Link rows.
type PageAnalysis struct {
	URL        string `json:"url"`
	FinalURL   string `json:"final_url"`
	StatusCode int    `json:"status_code"`

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

	ContentText        string  `json:"content_text,omitempty"`
	WordCount          int     `json:"word_count"`
	ReadingTimeSeconds int     `json:"reading_time_seconds"`
	TextHTMLRatio      float64 `json:"text_html_ratio"`

	ImagesTotal      int `json:"images_total"`
	ImagesMissingAlt int `json:"images_missing_alt"`

	Links              []ExtractedLink `json:"links,omitempty"`
	InternalLinksCount int             `json:"internal_links_count"`
	ExternalLinksCount int             `json:"external_links_count"`

	HasSchemaMarkup bool              `json:"has_schema_markup"`
	SchemaTypes     []string          `json:"schema_types,omitempty"`
	OGData          map[string]string `json:"og_data,omitempty"`
	TwitterData     map[string]string `json:"twitter_data,omitempty"`

	HasViewport bool `json:"has_viewport"`
	IsHTTPS     bool `json:"is_https"`

	// Keywords maps unigrams and bigrams found in the body text to their
	// in-page frequency. Feeds site-level keyword aggregation.
	Keywords map[string]int `json:"keywords,omitempty"`
}
