package models

import "time"

// Score dimension names used as breakdown keys and in API payloads.
const (
	DimensionTechnical    = "technical"
	DimensionContent      = "content"
	DimensionAuthority    = "authority"
	DimensionLinking      = "linking"
	DimensionAIVisibility = "ai_visibility"
)

// Check captures one scoring check's contribution to a dimension.
// Page-level scores populate Score; site-level aggregates populate
// AvgScore and Pct instead.
type Check struct {
	Score    float64 `json:"score,omitempty"`
	AvgScore float64 `json:"avg_score,omitempty"`
	Max      float64 `json:"max"`
	Pct      float64 `json:"pct,omitempty"`
	Value    string  `json:"value,omitempty"`
}

// Breakdown maps dimension name to per-check detail.
type Breakdown map[string]map[string]Check

// Score is a persisted scoring result. PageID is empty for site-level
// scores; the latest site score is the authoritative one.
type Score struct {
	ID                string    `json:"id"`
	SiteID            string    `json:"site_id" badgerhold:"index"`
	PageID            string    `json:"page_id,omitempty" badgerhold:"index"`
	OverallScore      float64   `json:"overall_score"`
	TechnicalScore    float64   `json:"technical_score"`
	ContentScore      float64   `json:"content_score"`
	AuthorityScore    float64   `json:"authority_score"`
	LinkingScore      float64   `json:"linking_score"`
	AIVisibilityScore float64   `json:"ai_visibility_score"`
	Breakdown         Breakdown `json:"breakdown,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
