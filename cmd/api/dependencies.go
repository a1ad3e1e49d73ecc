package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/meu-holerite/internal/domain/export"
	exporthandler "github.com/FACorreiaa/meu-holerite/internal/domain/export/handler"
	importhandler "github.com/FACorreiaa/meu-holerite/internal/domain/import/handler"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/meu-holerite/internal/domain/import/service"
	"github.com/FACorreiaa/meu-holerite/internal/domain/insights"
	insightshandler "github.com/FACorreiaa/meu-holerite/internal/domain/insights/handler"

	"github.com/FACorreiaa/meu-holerite/pkg/config"
	"github.com/FACorreiaa/meu-holerite/pkg/cron"
	"github.com/FACorreiaa/meu-holerite/pkg/db"
	"github.com/FACorreiaa/meu-holerite/pkg/metrics"
	"github.com/FACorreiaa/meu-holerite/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB // nil in in-memory mode
	Logger *slog.Logger

	// Repositories
	ImportRepo    importrepo.ImportRepository
	OverrideStore *normalizer.OverrideStore // nil in in-memory mode

	// Services
	Metrics         *metrics.Metrics
	FileStorage     storage.Storage
	Extractor       *parser.PDFParser
	ImportService   *importservice.ImportService
	SearchIndex     *insights.SearchIndex
	InsightsService *insights.Service
	ExportService   *export.Service
	Scheduler       *cron.Scheduler // nil unless the inbox is enabled

	// Handlers
	ImportHandler   *importhandler.ImportHandler
	OverrideHandler *importhandler.OverrideHandler
	InsightsHandler *insightshandler.InsightsHandler
	ExportHandler   *exporthandler.ExportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase connects to Postgres and runs migrations unless imports are
// kept in memory.
func (d *Dependencies) initDatabase() error {
	if d.Config.Database.InMemory {
		d.Logger.Warn("database disabled, imports are kept in memory only")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() error {
	if d.DB == nil {
		d.ImportRepo = importrepo.NewMemoryImportRepository()
	} else {
		d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
		d.OverrideStore = normalizer.NewOverrideStore(d.DB.Pool)
	}

	d.Logger.Info("repositories initialized")
	return nil
}

func (d *Dependencies) initServices() error {
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage
	d.Extractor = parser.NewPDFParser()

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.FileStorage, d.Extractor, d.Logger).
		WithMetrics(d.Metrics).
		WithEmployerName(d.Config.Parser.EmployerName)
	if d.OverrideStore != nil {
		d.ImportService.WithOverrides(d.OverrideStore)
	}

	d.SearchIndex, err = insights.NewSearchIndex()
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.InsightsService = insights.NewService(d.ImportRepo, d.SearchIndex, d.Logger)

	d.ExportService = export.NewService(d.ImportRepo, d.Logger)

	if d.Config.Inbox.Enabled {
		d.Scheduler = cron.NewScheduler(d.ImportService, cron.InboxConfig{
			Dir:      d.Config.Inbox.Dir,
			Schedule: d.Config.Inbox.Schedule,
			Timeout:  d.Config.Inbox.Timeout,
		}, d.Logger)
	}

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.ImportRepo, d.Logger).
		WithMaxUploadBytes(d.Config.Server.MaxUploadBytes)
	if d.OverrideStore != nil {
		d.OverrideHandler = importhandler.NewOverrideHandler(d.OverrideStore, d.Logger)
	}
	d.InsightsHandler = insightshandler.NewInsightsHandler(d.InsightsService, d.Logger)
	d.ExportHandler = exporthandler.NewExportHandler(d.ExportService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
