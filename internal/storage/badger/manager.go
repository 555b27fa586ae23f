package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db       *BadgerDB
	sites    interfaces.SiteStorage
	jobs     interfaces.CrawlJobStorage
	pages    interfaces.PageStorage
	links    interfaces.LinkStorage
	scores   interfaces.ScoreStorage
	issues   interfaces.IssueStorage
	keywords interfaces.KeywordStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		sites:    NewSiteStorage(db, logger),
		jobs:     NewCrawlJobStorage(db, logger),
		pages:    NewPageStorage(db, logger),
		links:    NewLinkStorage(db, logger),
		scores:   NewScoreStorage(db, logger),
		issues:   NewIssueStorage(db, logger),
		keywords: NewKeywordStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SiteStorage returns the Site storage interface.
func (m *Manager) SiteStorage() interfaces.SiteStorage {
	return m.sites
}

// CrawlJobStorage returns the CrawlJob storage interface.
func (m *Manager) CrawlJobStorage() interfaces.CrawlJobStorage {
	return m.jobs
}

// PageStorage returns the Page storage interface.
func (m *Manager) PageStorage() interfaces.PageStorage {
	return m.pages
}

// LinkStorage returns the Link storage interface.
func (m *Manager) LinkStorage() interfaces.LinkStorage {
	return m.links
}

// ScoreStorage returns the Score storage interface.
func (m *Manager) ScoreStorage() interfaces.ScoreStorage {
	return m.scores
}

// IssueStorage returns the Issue storage interface.
func (m *Manager) IssueStorage() interfaces.IssueStorage {
	return m.issues
}

// KeywordStorage returns the Keyword storage interface.
func (m *Manager) KeywordStorage() interfaces.KeywordStorage {
	return m.keywords
}

// DB returns the underlying database connection.
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
