package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yourusername/kuco/internal/cache"
	"github.com/yourusername/kuco/internal/datasource"
	"github.com/yourusername/kuco/internal/diagnostic"
	"github.com/yourusername/kuco/internal/display"
	"github.com/yourusername/kuco/internal/model"
	"github.com/yourusername/kuco/internal/ui"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	authorizationclient "k8s.io/client-go/kubernetes/typed/authorization/v1"
)

// Store re-read period of the console
const consoleReloadInterval = 2 * time.Second

// App represents the main application
type App struct {
	logger    *zap.Logger
	config    *Config
	version   string
	store     cache.Store
	source    *datasource.APIServerClient
	refresher *cache.Refresher
}

// New creates a new App instance
func New(config *Config, version string) (*App, error) {
	logger, err := initLogger(config.LogLevel, config.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return newApp(config, version, logger), nil
}

func newApp(config *Config, version string, logger *zap.Logger) *App {
	return &App{
		logger:  logger,
		config:  config,
		version: version,
	}
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// openStore opens the configured cache backend once
func (a *App) openStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	store, err := cache.Open(ctx, a.config.CacheOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	a.store = store
	return nil
}

// initDataSource connects to the API server once
func (a *App) initDataSource() error {
	if a.source != nil {
		return nil
	}

	a.logger.Info("Initializing data source",
		zap.String("kubeconfig", a.config.Kubeconfig),
		zap.String("context", a.config.Context),
	)

	source, err := datasource.NewAPIServerClient(a.config.Kubeconfig, a.config.Context, a.config.Timeout, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create API Server client: %w", err)
	}
	a.source = source
	return nil
}

// startRefresher opens the store and the data source and starts both sync stages
func (a *App) startRefresher(ctx context.Context) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}
	if err := a.initDataSource(); err != nil {
		return err
	}

	a.refresher = cache.NewRefresher(a.source, a.store, a.config.RefresherOptions(), a.logger)
	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start refresher: %w", err)
	}
	return nil
}

// RunConsole starts the synchronizer and the terminal UI; it returns when the UI exits
func (a *App) RunConsole(ctx context.Context) error {
	a.logger.Info("Starting kuco console",
		zap.String("version", a.version),
		zap.String("backend", a.config.CacheBackend),
		zap.Duration("fast_interval", a.config.FastInterval),
		zap.Duration("slow_interval", a.config.SlowInterval),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.startRefresher(ctx); err != nil {
		return err
	}

	projector := display.NewProjector(a.store, a.config.CacheTable)
	uiModel := ui.NewModel(ctx, projector, a.refresher, a.logger, ui.Options{
		Locale:         a.config.Locale,
		Version:        a.version,
		ReloadInterval: consoleReloadInterval,
		LogsInterval:   a.config.FastInterval,
	})

	a.logger.Info("Starting UI", zap.String("locale", a.config.Locale))
	p := tea.NewProgram(uiModel, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// RunSync runs the synchronizer without a UI until ctx is cancelled
func (a *App) RunSync(ctx context.Context) error {
	a.logger.Info("Starting headless sync",
		zap.String("version", a.version),
		zap.String("backend", a.config.CacheBackend),
	)

	if err := a.startRefresher(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("Headless sync stopping", zap.Error(ctx.Err()))
	return nil
}

// Status returns the synchronizer status, zero before it was started
func (a *App) Status() cache.RefresherStatus {
	if a.refresher == nil {
		return cache.RefresherStatus{}
	}
	return a.refresher.Status()
}

// Diagnose checks cluster permissions and cache freshness.
// A cluster that cannot be reached is reported in the access section.
func (a *App) Diagnose(ctx context.Context) (*diagnostic.Report, error) {
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var authz authorizationclient.AuthorizationV1Interface
	sourceErr := a.initDataSource()
	if sourceErr == nil {
		authz = a.source.Clientset().AuthorizationV1()
	} else {
		a.logger.Warn("Skipping access review", zap.Error(sourceErr))
	}

	report := diagnostic.Run(ctx, authz, a.store, a.config.CacheTable, a.config.StaleThreshold())
	if sourceErr != nil {
		report.AccessErr = sourceErr
	}
	return report, nil
}

// DumpCache lists the entries of table, the configured table when empty
func (a *App) DumpCache(ctx context.Context, table string) ([]model.CacheEntry, error) {
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if table == "" {
		table = a.config.CacheTable
	}
	return a.store.Entries(ctx, table)
}

// ClearCache deletes every entry of table, the configured table when empty
func (a *App) ClearCache(ctx context.Context, table string) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}
	if table == "" {
		table = a.config.CacheTable
	}
	return a.store.Clear(ctx, table)
}

// Shutdown gracefully stops the application
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down application...")

	if a.refresher != nil && a.refresher.Status().IsRunning {
		if err := a.refresher.Stop(); err != nil {
			a.logger.Error("Failed to stop refresher", zap.Error(err))
		}
	}

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Error("Failed to close data source", zap.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close cache", zap.Error(err))
		}
		a.store = nil
	}

	// Sync only flushes buffered log entries, ignore stderr sync errors
	_ = a.logger.Sync()
	return nil
}

// initLogger initializes the zap logger with file rotation support
func initLogger(levelStr, logFile string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if logFile == "" {
		logFile = defaultLogFile
	}

	// NOTE: never write to stderr/stdout, the TUI owns the terminal
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	zap.ReplaceGlobals(logger)

	return logger, nil
}
