package models

import "time"

// IssueSeverity ranks how urgently an issue should be addressed.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityHigh     IssueSeverity = "high"
	SeverityMedium   IssueSeverity = "medium"
	SeverityLow      IssueSeverity = "low"
	SeverityInfo     IssueSeverity = "info"
)

// Valid reports whether the string is a known severity.
func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// severityRank orders severities for sorting, most urgent first.
var severityRank = map[IssueSeverity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort position of the severity, most urgent first.
func (s IssueSeverity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Issue is a detected SEO problem with actionable fix guidance.
// PageID is empty for site-wide issues.
type Issue struct {
	ID                string        `json:"id"`
	SiteID            string        `json:"site_id" badgerhold:"index"`
	PageID            string        `json:"page_id,omitempty" badgerhold:"index"`
	JobID             string        `json:"job_id,omitempty" badgerhold:"index"`
	IssueType         string        `json:"issue_type" badgerhold:"index"`
	Severity          IssueSeverity `json:"severity" badgerhold:"index"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Recommendation    string        `json:"recommendation"`
	FixInstructions   string        `json:"fix_instructions"`
	ImpactDescription string        `json:"impact_description"`
	AffectedElement   string        `json:"affected_element,omitempty"`
	IsResolved        bool          `json:"is_resolved" badgerhold:"index"`
	CreatedAt         time.Time     `json:"created_at"`
}
