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

const defaultKeywordLimit = 500

// KeywordStorage implements interfaces.KeywordStorage on Badger.
type KeywordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKeywordStorage creates a new KeywordStorage instance.
func NewKeywordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeywordStorage {
	return &KeywordStorage{
		db:     db,
		logger: logger,
	}
}

// BulkUpsert stores keywords keyed by (SiteID, Keyword): rows for terms the
// site already has are replaced in place, new terms are inserted.
func (s *KeywordStorage) BulkUpsert(ctx context.Context, siteID string, keywords []*models.Keyword) error {
	var existing []models.Keyword
	if err := s.db.Store().Find(&existing, badgerhold.Where("SiteID").Eq(siteID)); err != nil {
		return fmt.Errorf("failed to load existing keywords: %w", err)
	}

	byTerm := make(map[string]*models.Keyword, len(existing))
	for i := range existing {
		byTerm[existing[i].Keyword] = &existing[i]
	}

	now := time.Now().UTC()
	for _, kw := range keywords {
		if prev, ok := byTerm[kw.Keyword]; ok {
			kw.ID = prev.ID
			kw.CreatedAt = prev.CreatedAt
		} else {
			if kw.ID == "" {
				kw.ID = uuid.New().String()
			}
			kw.CreatedAt = now
		}
		kw.SiteID = siteID
		kw.UpdatedAt = now

		if err := s.db.Store().Upsert(kw.ID, kw); err != nil {
			return fmt.Errorf("failed to upsert keyword %q: %w", kw.Keyword, err)
		}
	}
	return nil
}

func (s *KeywordStorage) GetOpportunities(ctx context.Context, siteID string, minScore float64, limit int) ([]*models.Keyword, error) {
	query := badgerhold.Where("SiteID").Eq(siteID).
		And("IsOpportunity").Eq(true).
		And("OpportunityScore").Ge(minScore).
		SortBy("OpportunityScore").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var keywords []models.Keyword
	if err := s.db.Store().Find(&keywords, query); err != nil {
		return nil, fmt.Errorf("failed to list keyword opportunities: %w", err)
	}

	result := make([]*models.Keyword, len(keywords))
	for i := range keywords {
		result[i] = &keywords[i]
	}
	return result, nil
}

func (s *KeywordStorage) GetAllForSite(ctx context.Context, siteID string, limit int) ([]*models.Keyword, error) {
	if limit <= 0 {
		limit = defaultKeywordLimit
	}
	query := badgerhold.Where("SiteID").Eq(siteID).
		SortBy("Frequency").Reverse().
		Limit(limit)

	var keywords []models.Keyword
	if err := s.db.Store().Find(&keywords, query); err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	result := make([]*models.Keyword, len(keywords))
	for i := range keywords {
		result[i] = &keywords[i]
	}
	return result, nil
}

func (s *KeywordStorage) CountForSite(ctx context.Context, siteID string) (int, error) {
	count, err := s.db.Store().Count(&models.Keyword{}, badgerhold.Where("SiteID").Eq(siteID))
	if err != nil {
		return 0, fmt.Errorf("failed to count keywords: %w", err)
	}
	return int(count), nil
}
