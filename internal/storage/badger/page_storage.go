package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PageStorage implements interfaces.PageStorage on Badger. Pages are keyed
// by ID; uniqueness per (SiteID, URL) is enforced by Upsert's lookup.
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance.
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the page or replaces the existing row for the same
// (SiteID, URL), preserving the stored row's ID so links and scores keep
// pointing at it across re-crawls.
func (s *PageStorage) Upsert(ctx context.Context, page *models.Page) (*models.Page, error) {
	if page.SiteID == "" || page.URL == "" {
		return nil, fmt.Errorf("page site_id and url are required")
	}

	existing, err := s.GetByURL(ctx, page.SiteID, page.URL)
	switch {
	case err == nil:
		page.ID = existing.ID
	case errors.Is(err, models.ErrPageNotFound):
		if page.ID == "" {
			page.ID = uuid.New().String()
		}
	default:
		return nil, err
	}

	if page.CrawledAt.IsZero() {
		page.CrawledAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(page.ID, page); err != nil {
		return nil, fmt.Errorf("failed to upsert page: %w", err)
	}
	return page, nil
}

func (s *PageStorage) GetByID(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	if err := s.db.Store().Get(id, &page); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) GetByURL(ctx context.Context, siteID, url string) (*models.Page, error) {
	var pages []models.Page
	query := badgerhold.Where("SiteID").Eq(siteID).And("URL").Eq(url).Limit(1)
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to get page by url: %w", err)
	}
	if len(pages) == 0 {
		return nil, models.ErrPageNotFound
	}
	return &pages[0], nil
}

func (s *PageStorage) GetForSite(ctx context.Context, siteID string, statusCode *int, offset, limit int) ([]*models.Page, error) {
	query := badgerhold.Where("SiteID").Eq(siteID)
	if statusCode != nil {
		query = query.And("StatusCode").Eq(*statusCode)
	}
	query = query.SortBy("CrawledAt").Reverse()
	if offset > 0 {
		query = query.Skip(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var pages []models.Page
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) CountForSite(ctx context.Context, siteID string) (int, error) {
	count, err := s.db.Store().Count(&models.Page{}, badgerhold.Where("SiteID").Eq(siteID))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) GetMissingTitles(ctx context.Context, siteID string) ([]*models.Page, error) {
	var pages []models.Page
	query := badgerhold.Where("SiteID").Eq(siteID).And("Title").Eq("")
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages missing titles: %w", err)
	}

	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}
