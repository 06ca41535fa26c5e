package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	cataloghandler "github.com/construlink/obra-tracker/internal/domain/catalog/handler"
	importhandler "github.com/construlink/obra-tracker/internal/domain/import/handler"
	"github.com/construlink/obra-tracker/internal/domain/import/normalizer"
	importservice "github.com/construlink/obra-tracker/internal/domain/import/service"
	"github.com/construlink/obra-tracker/internal/domain/movements"
	movementshandler "github.com/construlink/obra-tracker/internal/domain/movements/handler"
	"github.com/construlink/obra-tracker/internal/domain/personnel"
	personnelhandler "github.com/construlink/obra-tracker/internal/domain/personnel/handler"
	"github.com/construlink/obra-tracker/pkg/config"
	"github.com/construlink/obra-tracker/pkg/cron"
	"github.com/construlink/obra-tracker/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	CatalogRepo   *catalog.Repository
	OverrideStore *normalizer.OverrideStore
	MovementsRepo *movements.Repository
	PersonnelRepo *personnel.Repository

	// Services
	CatalogService   *catalog.Service
	ImportSessions   *importservice.SessionStore
	ImportService    *importservice.ImportService
	MovementsService *movements.Service
	PersonnelService *personnel.Service
	Scheduler        *cron.Scheduler

	// Handlers
	ImportHandler    *importhandler.ImportHandler
	CatalogHandler   *cataloghandler.CatalogHandler
	MovementsHandler *movementshandler.MovementsHandler
	PersonnelHandler *personnelhandler.PersonnelHandler
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
	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the repository layer
func (d *Dependencies) initRepositories() {
	d.CatalogRepo = catalog.NewRepository(d.DB.Pool)
	d.OverrideStore = normalizer.NewOverrideStore(d.DB.Pool)
	d.MovementsRepo = movements.NewRepository(d.DB.Pool)
	d.PersonnelRepo = personnel.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes the service layer
func (d *Dependencies) initServices() {
	d.CatalogService = catalog.NewService(d.CatalogRepo, d.Logger)
	d.MovementsService = movements.NewService(d.MovementsRepo, d.Logger)
	d.PersonnelService = personnel.NewService(d.PersonnelRepo, d.Logger)

	d.ImportSessions = importservice.NewSessionStore(d.Config.Import.SessionTTL)
	d.ImportService = importservice.NewImportService(
		d.ImportSessions,
		d.CatalogRepo,
		d.OverrideStore,
		d.MovementsRepo,
		d.Logger,
	).WithNormalizerConfig(normalizer.Config{
		SimilarityCutoff:   d.Config.Import.SimilarityCutoff,
		MinSimilarKeyChars: d.Config.Import.MinSimilarKeyChars,
	}).WithInvalidator(d.MovementsService).
		WithReindexer(d.CatalogService)

	d.Scheduler = cron.NewScheduler(d.ImportSessions, d.Config.Import.SessionSweepSpec, d.Logger)

	d.Logger.Info("services initialized")
}

// initHandlers initializes the handler layer
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Import.MaxUploadBytes, d.Logger)
	d.CatalogHandler = cataloghandler.NewCatalogHandler(d.CatalogService, d.Logger)
	d.MovementsHandler = movementshandler.NewMovementsHandler(d.MovementsService, d.Logger)
	d.PersonnelHandler = personnelhandler.NewPersonnelHandler(d.PersonnelService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
