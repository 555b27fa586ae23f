package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// IssueStorage implements interfaces.IssueStorage on Badger.
type IssueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIssueStorage creates a new IssueStorage instance.
func NewIssueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IssueStorage {
	return &IssueStorage{
		db:     db,
		logger: logger,
	}
}

// ReplaceForPage swaps the page's unresolved issues for the new set, so a
// re-crawl reflects the page's current state. Resolved issues are kept for
// history.
func (s *IssueStorage) ReplaceForPage(ctx context.Context, siteID, pageID string, issues []*models.Issue) error {
	query := badgerhold.Where("PageID").Eq(pageID).And("IsResolved").Eq(false)
	if err := s.db.Store().DeleteMatching(&models.Issue{}, query); err != nil {
		return fmt.Errorf("failed to clear page issues: %w", err)
	}
	return s.insertAll(siteID, pageID, issues)
}

// ReplaceSiteWide swaps the site's pageless issues for the new set.
func (s *IssueStorage) ReplaceSiteWide(ctx context.Context, siteID string, issues []*models.Issue) error {
	query := badgerhold.Where("SiteID").Eq(siteID).
		And("PageID").Eq("").
		And("IsResolved").Eq(false)
	if err := s.db.Store().DeleteMatching(&models.Issue{}, query); err != nil {
		return fmt.Errorf("failed to clear site issues: %w", err)
	}
	return s.insertAll(siteID, "", issues)
}

func (s *IssueStorage) insertAll(siteID, pageID string, issues []*models.Issue) error {
	now := time.Now().UTC()
	for _, issue := range issues {
		if issue.ID == "" {
			issue.ID = uuid.New().String()
		}
		issue.SiteID = siteID
		issue.PageID = pageID
		issue.CreatedAt = now
		if err := s.db.Store().Insert(issue.ID, issue); err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
	}
	return nil
}

// GetForSite returns issues for a site, most severe first, with optional
// severity and resolution filters. Offset/limit page the sorted result.
func (s *IssueStorage) GetForSite(ctx context.Context, siteID string, severity *models.IssueSeverity, resolved *bool, offset, limit int) ([]*models.Issue, error) {
	query := badgerhold.Where("SiteID").Eq(siteID)
	if severity != nil {
		query = query.And("Severity").Eq(*severity)
	}
	if resolved != nil {
		query = query.And("IsResolved").Eq(*resolved)
	}

	var issues []models.Issue
	if err := s.db.Store().Find(&issues, query); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity.Rank() < issues[j].Severity.Rank()
		}
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})

	if offset > len(issues) {
		offset = len(issues)
	}
	issues = issues[offset:]
	if limit > 0 && limit < len(issues) {
		issues = issues[:limit]
	}

	result := make([]*models.Issue, len(issues))
	for i := range issues {
		result[i] = &issues[i]
	}
	return result, nil
}

func (s *IssueStorage) CountBySeverity(ctx context.Context, siteID string) (map[models.IssueSeverity]int, error) {
	counts := make(map[models.IssueSeverity]int)
	for _, severity := range []models.IssueSeverity{
		models.SeverityCritical,
		models.SeverityHigh,
		models.SeverityMedium,
		models.SeverityLow,
		models.SeverityInfo,
	} {
		query := badgerhold.Where("SiteID").Eq(siteID).
			And("Severity").Eq(severity).
			And("IsResolved").Eq(false)
		count, err := s.db.Store().Count(&models.Issue{}, query)
		if err != nil {
			return nil, fmt.Errorf("failed to count issues by severity: %w", err)
		}
		counts[severity] = int(count)
	}
	return counts, nil
}

func (s *IssueStorage) DeleteForJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.Issue{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete issues for job: %w", err)
	}
	return nil
}
