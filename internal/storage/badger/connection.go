package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// Value log garbage collection. Badger never reclaims value log space
// on its own; crawls write large page bodies so the service runs GC
// periodically for as long as the connection is open.
const (
	valueLogGCInterval     = 5 * time.Minute
	valueLogGCDiscardRatio = 0.5
)

// BadgerDB manages the Badger database connection shared by all storages.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.StorageConfig
	gcStop chan struct{}
	gcDone chan struct{}
}

// NewBadgerDB opens (and optionally resets) the Badger database.
func NewBadgerDB(logger arbor.ILogger, config *common.StorageConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Dir); err == nil {
			logger.Debug().Str("path", config.Dir).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Dir); err != nil {
				logger.Warn().Err(err).Str("path", config.Dir).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Dir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Dir).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Dir
	options.ValueDir = config.Dir
	options.Logger = nil // arbor handles logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
		gcStop: make(chan struct{}),
		gcDone: make(chan struct{}),
	}

	common.SafeGo(logger, "badger-value-log-gc", db.runValueLogGC)

	return db, nil
}

// runValueLogGC reclaims value log space on a fixed interval until the
// connection is closed. Each successful pass rewrites one value log
// file, so passes repeat until Badger reports nothing left to rewrite.
func (b *BadgerDB) runValueLogGC() {
	defer close(b.gcDone)

	ticker := time.NewTicker(valueLogGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.gcStop:
			return
		case <-ticker.C:
			reclaimed := 0
			for {
				err := b.store.Badger().RunValueLogGC(valueLogGCDiscardRatio)
				if err == nil {
					reclaimed++
					continue
				}
				if !errors.Is(err, badgerdb.ErrNoRewrite) {
					b.logger.Warn().Err(err).Msg("Badger value log GC failed")
				}
				break
			}
			if reclaimed > 0 {
				b.logger.Debug().Int("files", reclaimed).Msg("Badger value log files reclaimed")
			}
		}
	}
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC loop and closes the database connection.
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	close(b.gcStop)
	<-b.gcDone
	return b.store.Close()
}
