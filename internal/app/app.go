package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/hcl"
	"github.com/specialistvlad/buildgrid/internal/telemetry"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/specialistvlad/buildgrid/internal/uptodate"
	"github.com/specialistvlad/buildgrid/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Build state lives in a per-invocation session, so one App can
// run many builds, e.g. in watch mode.
type App struct {
	outW      io.Writer
	errW      io.Writer
	logger    *slog.Logger
	config    *Config
	toolchain *toolchain.Toolchain
	loaders   []config.Loader
	metrics   *telemetry.Metrics
	store     *uptodate.FileStore

	httpServer *http.Server

	// outputs holds the absolute output paths of the last built graph.
	mu      sync.Mutex
	outputs []string
}

// NewApp is the constructor for the main application. Reports and task
// output go to outW. Logs and task error output go to logW. Without explicit
// modules the core action modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...toolchain.Module) (*App, error) {
	logger, err := newLogger(cfg, logW)
	if err != nil {
		return nil, err
	}
	logger.Debug("Logger configured successfully.", "level", cfg.LogLevel, "format", cfg.LogFormat)

	if len(modules) == 0 {
		modules = coreModules
	}
	tools := toolchain.New(modules...)
	logger.Debug("All action modules registered.", "count", len(modules), "kinds", tools.Kinds())

	a := &App{
		outW:      outW,
		errW:      logW,
		logger:    logger,
		config:    cfg,
		toolchain: tools,
		loaders:   []config.Loader{hcl.NewLoader(), yamlconfig.NewLoader()},
		metrics:   telemetry.NewMetrics(),
	}

	if cfg.StateDB != "" {
		store, err := uptodate.Open(cfg.StateDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		a.store = store
		logger.Debug("Up-to-date state store opened.", "path", cfg.StateDB)
	}
	return a, nil
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Metrics returns the application's metrics. This is primarily for testing.
func (a *App) Metrics() *telemetry.Metrics {
	return a.metrics
}

func (a *App) checker() uptodate.Checker {
	if a.store != nil {
		return a.store
	}
	return uptodate.Never{}
}

// Close releases resources held across builds.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
