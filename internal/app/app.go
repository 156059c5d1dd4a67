package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/services/logviewer"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/handlers"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/auth"
	"github.com/ternarybob/scimdash/internal/services/compliance"
	"github.com/ternarybob/scimdash/internal/services/events"
	"github.com/ternarybob/scimdash/internal/services/report"
	"github.com/ternarybob/scimdash/internal/services/runner"
	"github.com/ternarybob/scimdash/internal/services/scheduler"
	"github.com/ternarybob/scimdash/internal/services/selection"
	"github.com/ternarybob/scimdash/internal/storage"
	"github.com/ternarybob/scimdash/pages"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService *scheduler.Service

	// Dashboard state
	SelectionService *selection.Service
	AuthService      *auth.Service
	RunController    *runner.Controller

	ComplianceClient *compliance.Client
	ReportService    *report.Service

	// Reads back the service log files
	SystemLogsService *logviewer.Service

	// Streams arbor output to dashboard clients
	LogStreamer *handlers.LogStreamer

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	ConfigHandler    *handlers.ConfigHandler
	WSHandler        *handlers.WebSocketHandler
	PageHandler      *handlers.PageHandler
	SelectionHandler *handlers.SelectionHandler
	AuthHandler      *handlers.AuthHandler
	RunHandler       *handlers.RunHandler
	RunsHandler      *handlers.RunsHandler
	SchedulerHandler *handlers.SchedulerHandler
	LogsHandler      *handlers.SystemLogsHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Log streaming starts last so startup noise stays out of the dashboard
	app.LogStreamer = handlers.NewLogStreamer(app.WSHandler, &app.Config.WebSocket)
	app.LogStreamer.Attach(app.Logger)

	if app.Config.Scheduler.Enabled {
		if err := app.SchedulerService.Start(app.Config.Scheduler.Schedule); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	logger.Info().
		Str("compliance_url", common.RedactURL(app.ComplianceClient.URL())).
		Bool("scheduler_enabled", app.Config.Scheduler.Enabled).
		Bool("history_in_memory", app.Config.Storage.Badger.InMemory).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the run history store (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the dashboard services in dependency order: selection and auth feed
// the run controller, which the scheduler drives.
func (a *App) initServices() error {
	a.SelectionService = selection.NewService(a.EventService, a.Logger)

	mode, err := models.ParseAuthMode(a.Config.Auth.DefaultMode)
	if err != nil {
		a.Logger.Warn().
			Err(err).
			Str("default_mode", a.Config.Auth.DefaultMode).
			Msg("Invalid default auth mode, using basic")
		mode = models.AuthModeBasic
	}
	a.AuthService = auth.NewService(a.Config.Auth.DefaultEndpoint, mode, a.EventService, a.Logger)

	timeout, err := a.Config.ComplianceTimeout()
	if err != nil {
		return err
	}
	a.ComplianceClient = compliance.NewClient(
		a.Config.Compliance.ServiceURL,
		compliance.WithPath(a.Config.Compliance.Path),
		compliance.WithTimeout(timeout),
		compliance.WithLogger(a.Logger),
	)

	a.RunController = runner.NewController(
		a.SelectionService,
		a.AuthService,
		a.ComplianceClient,
		a.StorageManager.RunStorage(),
		a.EventService,
		a.Logger,
	)

	if a.Config.Scheduler.Enabled {
		a.SchedulerService = scheduler.NewService(a.RunController, a.Logger)
	}

	a.ReportService = report.NewService(a.Config.Reports.Title, a.Logger)

	logFile := common.GetLogFilePath(a.Logger)
	a.SystemLogsService = logviewer.NewService(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeFile,
		FileName:   logFile,
		TimeFormat: a.Config.Logging.TimeFormat,
	})
	a.Logger.Debug().Str("log_file", logFile).Msg("System logs service initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ConfigHandler = handlers.NewConfigHandler(a.Logger, a.Config)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.RunController, a.Logger, &a.Config.WebSocket)
	a.SelectionHandler = handlers.NewSelectionHandler(a.SelectionService, a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(a.AuthService, a.Logger)
	a.RunHandler = handlers.NewRunHandler(a.RunController, a.Logger)
	a.RunsHandler = handlers.NewRunsHandler(a.StorageManager.RunStorage(), a.ReportService, a.Logger)

	// A nil *scheduler.Service must not become a non-nil interface
	var schedulerStatus handlers.SchedulerStatusProvider
	if a.SchedulerService != nil {
		schedulerStatus = a.SchedulerService
	}
	a.SchedulerHandler = handlers.NewSchedulerHandler(schedulerStatus)
	a.LogsHandler = handlers.NewSystemLogsHandler(a.SystemLogsService, a.Logger)

	pageHandler, err := handlers.NewPageHandler(a.Logger, pages.FS, handlers.DashboardState{
		Selection: a.SelectionService,
		Auth:      a.AuthService,
		Runs:      a.RunController,
	}, handlers.ViewOptions{
		Title:         a.Config.Reports.Title,
		BasePath:      a.Config.NormalizedBasePath(),
		Version:       common.GetVersion(),
		ReportFormats: a.Config.Reports.Formats,
		ClientDebug:   !a.Config.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("failed to load dashboard templates: %w", err)
	}
	a.PageHandler = pageHandler

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close stops background work and releases storage. An active run is abandoned.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.LogStreamer != nil {
		a.LogStreamer.Stop()
	}

	if a.WSHandler != nil {
		if err := a.WSHandler.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket handler")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
