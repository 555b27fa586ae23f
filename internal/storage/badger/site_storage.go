package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SiteStorage implements interfaces.SiteStorage on Badger.
type SiteStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSiteStorage creates a new SiteStorage instance.
func NewSiteStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SiteStorage {
	return &SiteStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SiteStorage) Create(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		return fmt.Errorf("site ID is required")
	}
	now := time.Now().UTC()
	if site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	site.UpdatedAt = now

	if err := s.db.Store().Insert(site.ID, site); err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}
	return nil
}

func (s *SiteStorage) GetByID(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	if err := s.db.Store().Get(id, &site); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &site, nil
}

func (s *SiteStorage) GetByDomain(ctx context.Context, domain string) (*models.Site, error) {
	var sites []models.Site
	if err := s.db.Store().Find(&sites, badgerhold.Where("Domain").Eq(domain).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to get site by domain: %w", err)
	}
	if len(sites) == 0 {
		return nil, models.ErrSiteNotFound
	}
	return &sites[0], nil
}

func (s *SiteStorage) GetAll(ctx context.Context) ([]*models.Site, error) {
	var sites []models.Site
	query := badgerhold.Where("IsActive").Eq(true).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&sites, query); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	result := make([]*models.Site, len(sites))
	for i := range sites {
		result[i] = &sites[i]
	}
	return result, nil
}

func (s *SiteStorage) Update(ctx context.Context, site *models.Site) error {
	site.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(site.ID, site); err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	return nil
}

func (s *SiteStorage) UpdatePageCount(ctx context.Context, siteID string, pageCount int, crawledAt time.Time) error {
	site, err := s.GetByID(ctx, siteID)
	if err != nil {
		return err
	}
	site.PageCount = pageCount
	site.LastCrawlAt = &crawledAt
	return s.Update(ctx, site)
}
