package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/handlers"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/services/analyzer"
	"github.com/ternarybob/censeo/internal/services/crawler"
	"github.com/ternarybob/censeo/internal/services/keywords"
	"github.com/ternarybob/censeo/internal/services/pipeline"
	"github.com/ternarybob/censeo/internal/services/recommend"
	"github.com/ternarybob/censeo/internal/services/report"
	"github.com/ternarybob/censeo/internal/services/scorer"
	"github.com/ternarybob/censeo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Analysis services
	EventService     interfaces.EventService
	CrawlerService   interfaces.CrawlerService
	AnalyzerService  interfaces.AnalyzerService
	ScorerService    interfaces.ScorerService
	RecommendService interfaces.RecommendService
	KeywordService   interfaces.KeywordService
	PipelineService  interfaces.PipelineService
	ReportService    interfaces.ReportService

	// HTTP handlers
	CrawlHandler       *handlers.CrawlHandler
	SiteHandler        *handlers.SiteHandler
	PageHandler        *handlers.PageHandler
	IssueHandler       *handlers.IssueHandler
	OpportunityHandler *handlers.OpportunityHandler
	ScoreHandler       *handlers.ScoreHandler
	ReportHandler      *handlers.ReportHandler
	HealthHandler      *handlers.HealthHandler
	WSHandler          *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Start the pipeline dispatcher AFTER all handlers are initialized
	if err := app.PipelineService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}

	logger.Info().
		Int("max_depth", cfg.Crawler.MaxDepth).
		Int("max_concurrent_jobs", cfg.Jobs.MaxConcurrent).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("dir", a.Config.Storage.Dir).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// Event hub first so the pipeline can publish progress from the start
	a.EventService = pipeline.NewEventHub(a.Logger)
	a.Logger.Debug().Msg("Event hub initialized")

	a.CrawlerService = crawler.NewService(a.Config, a.Logger)
	a.Logger.Debug().Msg("Crawler service initialized")

	a.AnalyzerService = analyzer.NewService(a.Logger)
	a.ScorerService = scorer.NewService(a.Config, a.Logger)
	a.RecommendService = recommend.NewService(a.Logger)
	a.KeywordService = keywords.NewService(a.Logger)
	a.Logger.Debug().Msg("Analysis services initialized")

	a.PipelineService = pipeline.NewService(
		a.Config,
		a.Logger,
		a.StorageManager,
		a.CrawlerService,
		a.AnalyzerService,
		a.ScorerService,
		a.RecommendService,
		a.KeywordService,
		a.EventService,
	)
	a.Logger.Debug().Msg("Pipeline service initialized")

	a.ReportService = report.NewService(a.Logger, a.StorageManager)
	a.Logger.Debug().Msg("Report service initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.CrawlHandler = handlers.NewCrawlHandler(a.PipelineService, a.StorageManager.CrawlJobStorage(), a.Logger)
	a.SiteHandler = handlers.NewSiteHandler(a.StorageManager.SiteStorage(), a.Logger)
	a.PageHandler = handlers.NewPageHandler(a.StorageManager.SiteStorage(), a.StorageManager.PageStorage(), a.Logger)
	a.IssueHandler = handlers.NewIssueHandler(a.StorageManager.SiteStorage(), a.StorageManager.IssueStorage(), a.Logger)
	a.OpportunityHandler = handlers.NewOpportunityHandler(a.StorageManager.SiteStorage(), a.StorageManager.KeywordStorage(), a.Logger)
	a.ScoreHandler = handlers.NewScoreHandler(a.StorageManager.SiteStorage(), a.StorageManager.ScoreStorage(), a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.StorageManager, a.ReportService, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop the pipeline first so running jobs can finish or persist
	// a cancelled state before storage goes away
	if a.PipelineService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Jobs.ShutdownGracetime+5*time.Second)
		defer cancel()

		if err := a.PipelineService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop pipeline service")
		} else {
			a.Logger.Info().Msg("Pipeline stopped")
		}
	}

	// Close event hub so websocket clients get a close frame
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event hub")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
