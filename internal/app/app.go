package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/mountgrid/internal/activator"
	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/metrics"
	"github.com/vk/mountgrid/internal/navigation"
	"github.com/vk/mountgrid/internal/registry"
	"github.com/vk/mountgrid/internal/router"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	model     *config.Model
	registry  *registry.Registry
	router    *router.Router
	http      *loader.HTTP
	activator *activator.Activator
	history   *navigation.History
	metrics   *metrics.Metrics
	handler   http.Handler
}

// NewApp builds the layout engine from the configuration loaded by cfgLoader.
// Without modules the core local applications are compiled in.
func NewApp(outW io.Writer, cfg *Config, cfgLoader config.Loader, modules ...loader.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := cfgLoader.Load(ctx, cfg.LayoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if err := reg.PopulateFromModel(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to register applications: %w", err)
	}

	rtr, err := router.New(ctx, model.Layout, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build routes: %w", err)
	}

	if len(modules) == 0 {
		modules = coreModules
	}
	local := loader.NewLocal(modules...)
	logger.Debug("Local applications registered.", "count", len(local.Names()))

	httpLoader := loader.NewHTTP(loader.HTTPOptions{
		Timeout:    cfg.FetchTimeout,
		RetryCount: cfg.FetchRetries,
	})
	mux := loader.NewMux("http")
	mux.Handle("http", httpLoader)
	mux.Handle("https", httpLoader)
	mux.Handle(loader.LocalScheme, local)

	history, err := navigation.NewHistory(cfg.Location)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	act := activator.New(reg, rtr, mux, activator.Options{
		MountTimeout:   cfg.MountTimeout,
		UnmountTimeout: cfg.UnmountTimeout,
		MaxConcurrency: cfg.MaxConcurrency,
		QueueSize:      cfg.QueueSize,
		Observers:      []activator.Observer{m},
	})

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		model:     model,
		registry:  reg,
		router:    rtr,
		http:      httpLoader,
		activator: act,
		history:   history,
		metrics:   m,
	}
	a.handler = a.routes()
	return a, nil
}

// Activate subscribes the lifecycle engine to the navigation history. The
// engine logs through the app's logger for its whole lifetime.
func (a *App) Activate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.activator.Activate(ctx, a.history); err != nil {
		return fmt.Errorf("failed to activate layout engine: %w", err)
	}
	return nil
}

// Deactivate stops the lifecycle engine and unmounts every application.
func (a *App) Deactivate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.activator.Deactivate(ctx); err != nil {
		return fmt.Errorf("failed to deactivate layout engine: %w", err)
	}
	return nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Router returns the routing rules derived from the layout.
func (a *App) Router() *router.Router { return a.router }

// Activator returns the lifecycle engine.
func (a *App) Activator() *activator.Activator { return a.activator }

// History returns the navigation facility the engine is subscribed to.
func (a *App) History() *navigation.History { return a.history }

// Handler returns the operator HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }
