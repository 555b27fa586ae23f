package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LinkStorage implements interfaces.LinkStorage on Badger.
type LinkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLinkStorage creates a new LinkStorage instance.
func NewLinkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LinkStorage {
	return &LinkStorage{
		db:     db,
		logger: logger,
	}
}

// ReplaceForPage drops the page's previous outgoing links and stores the
// new set, so re-crawls never accumulate stale graph edges.
func (s *LinkStorage) ReplaceForPage(ctx context.Context, siteID, pageID string, links []*models.Link) error {
	if err := s.db.Store().DeleteMatching(&models.Link{}, badgerhold.Where("PageID").Eq(pageID)); err != nil {
		return fmt.Errorf("failed to clear links for page: %w", err)
	}

	now := time.Now().UTC()
	for _, link := range links {
		if link.ID == "" {
			link.ID = uuid.New().String()
		}
		link.SiteID = siteID
		link.PageID = pageID
		if link.LinkType == "" {
			link.LinkType = models.LinkTypeHyperlink
		}
		link.CreatedAt = now
		if err := s.db.Store().Insert(link.ID, link); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}
	return nil
}

func (s *LinkStorage) GetForPage(ctx context.Context, pageID string) ([]*models.Link, error) {
	var links []models.Link
	if err := s.db.Store().Find(&links, badgerhold.Where("PageID").Eq(pageID)); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	result := make([]*models.Link, len(links))
	for i := range links {
		result[i] = &links[i]
	}
	return result, nil
}

func (s *LinkStorage) CountInbound(ctx context.Context, siteID, targetURL string) (int, error) {
	query := badgerhold.Where("SiteID").Eq(siteID).
		And("TargetURL").Eq(targetURL).
		And("IsInternal").Eq(true)
	count, err := s.db.Store().Count(&models.Link{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count inbound links: %w", err)
	}
	return int(count), nil
}

// GetBroken returns internal links whose target page was crawled and
// resolved with a 4xx or 5xx status.
func (s *LinkStorage) GetBroken(ctx context.Context, siteID string) ([]*models.Link, error) {
	var pages []models.Page
	pageQuery := badgerhold.Where("SiteID").Eq(siteID).And("StatusCode").Ge(400)
	if err := s.db.Store().Find(&pages, pageQuery); err != nil {
		return nil, fmt.Errorf("failed to find error pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}

	broken := make(map[string]bool, len(pages))
	for i := range pages {
		broken[pages[i].URL] = true
	}

	var links []models.Link
	linkQuery := badgerhold.Where("SiteID").Eq(siteID).And("IsInternal").Eq(true)
	if err := s.db.Store().Find(&links, linkQuery); err != nil {
		return nil, fmt.Errorf("failed to list site links: %w", err)
	}

	var result []*models.Link
	for i := range links {
		if broken[links[i].TargetURL] {
			result = append(result, &links[i])
		}
	}
	return result, nil
}
