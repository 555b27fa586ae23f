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

// ScoreStorage implements interfaces.ScoreStorage on Badger. One live score
// row per page, one per site; upserts replace in place.
type ScoreStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScoreStorage creates a new ScoreStorage instance.
func NewScoreStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScoreStorage {
	return &ScoreStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ScoreStorage) UpsertSiteScore(ctx context.Context, score *models.Score) error {
	if score.SiteID == "" {
		return fmt.Errorf("score site_id is required")
	}
	score.PageID = ""

	query := badgerhold.Where("SiteID").Eq(score.SiteID).And("PageID").Eq("").Limit(1)
	return s.upsertMatching(score, query)
}

func (s *ScoreStorage) UpsertPageScore(ctx context.Context, score *models.Score) error {
	if score.SiteID == "" || score.PageID == "" {
		return fmt.Errorf("score site_id and page_id are required")
	}

	query := badgerhold.Where("PageID").Eq(score.PageID).Limit(1)
	return s.upsertMatching(score, query)
}

// upsertMatching keeps the matched row's ID when one exists so each page
// and site carries a single live score row.
func (s *ScoreStorage) upsertMatching(score *models.Score, query *badgerhold.Query) error {
	var existing []models.Score
	if err := s.db.Store().Find(&existing, query); err != nil {
		return fmt.Errorf("failed to look up score: %w", err)
	}

	if len(existing) > 0 {
		score.ID = existing[0].ID
	} else if score.ID == "" {
		score.ID = uuid.New().String()
	}
	score.CreatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(score.ID, score); err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

func (s *ScoreStorage) GetSiteScore(ctx context.Context, siteID string) (*models.Score, error) {
	var scores []models.Score
	query := badgerhold.Where("SiteID").Eq(siteID).And("PageID").Eq("").
		SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&scores, query); err != nil {
		return nil, fmt.Errorf("failed to get site score: %w", err)
	}
	if len(scores) == 0 {
		return nil, models.ErrScoreNotFound
	}
	return &scores[0], nil
}

func (s *ScoreStorage) GetPageScore(ctx context.Context, pageID string) (*models.Score, error) {
	var scores []models.Score
	query := badgerhold.Where("PageID").Eq(pageID).SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&scores, query); err != nil {
		return nil, fmt.Errorf("failed to get page score: %w", err)
	}
	if len(scores) == 0 {
		return nil, models.ErrScoreNotFound
	}
	return &scores[0], nil
}
