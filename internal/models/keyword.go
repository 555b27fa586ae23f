package models

import "time"

// DefaultTargetRank is the rank a keyword is optimized toward.
const DefaultTargetRank = 3

// OpportunityThreshold is the opportunity score above which a keyword is
// surfaced as an opportunity.
const OpportunityThreshold = 15.0

// MaxKeywordsPerSite caps how many keyword rows are persisted per crawl.
const MaxKeywordsPerSite = 300

// Keyword is an aggregated keyword opportunity for a site, unique per
// (SiteID, Keyword); re-crawls upsert in place.
type Keyword struct {
	ID                  string    `json:"id"`
	SiteID              string    `json:"site_id" badgerhold:"index"`
	Keyword             string    `json:"keyword" badgerhold:"index"`
	Frequency           int       `json:"frequency"`
	Density             float64   `json:"density"`
	EstimatedVolume     int       `json:"estimated_volume"`
	EstimatedDifficulty int       `json:"estimated_difficulty"`
	CurrentRank         *int      `json:"current_rank,omitempty"`
	TargetRank          int       `json:"target_rank"`
	RankGap             *int      `json:"rank_gap,omitempty"`
	CTRPotential        float64   `json:"ctr_potential"`
	OpportunityScore    float64   `json:"opportunity_score"`
	IsOpportunity       bool      `json:"is_opportunity" badgerhold:"index"`
	PageURLs            []string  `json:"page_urls,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
