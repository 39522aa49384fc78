// Package app wires the inspector's components together.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/facade"
	"github.com/bobmcallan/storage-inspector/internal/handlers"
	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/mcp"
	"github.com/bobmcallan/storage-inspector/internal/monitor"
	"github.com/bobmcallan/storage-inspector/internal/panel"
	"github.com/bobmcallan/storage-inspector/internal/relay"
	"github.com/bobmcallan/storage-inspector/internal/storage"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Host    interfaces.Host
	Relay   *relay.Relay
	Monitor *monitor.Monitor
	Facade  *facade.Facade
	View    *surface.View

	// HTTP handlers
	PageHandler     *handlers.PageHandler
	HealthHandler   *handlers.HealthHandler
	VersionHandler  *handlers.VersionHandler
	TargetHandler   *handlers.TargetHandler
	StorageHandler  *handlers.StorageHandler
	WorkersHandler  *handlers.WorkersHandler
	CachesHandler   *handlers.CachesHandler
	ExchangeHandler *handlers.ExchangeHandler
	EventStream     *relay.EventStream
	PanelHandler    *panel.Handler
	MCPHandler      *mcp.Handler

	stopObserve func()
}

// New connects to the configured storage backend and builds the stack on
// top of it: relay, monitor, façade, view and the HTTP surfaces.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if env != "" && env != "dev" && env != "prod" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if err := a.initCore(ctx); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("target", a.Facade.Target().URL).
		Msg("application initialization complete")

	return a, nil
}

// NewFromHost builds the stack over an existing host. Used by tests and
// by callers that manage the host themselves.
func NewFromHost(cfg *config.Config, host interfaces.Host, logger *common.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Host: host}
	if err := a.initStack(); err != nil {
		return nil, err
	}
	a.initHandlers()
	return a, nil
}

// initCore creates the host and the components above it.
func (a *App) initCore(ctx context.Context) error {
	host, err := storage.NewHost(ctx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage host: %w", err)
	}
	a.Host = host
	if err := a.initStack(); err != nil {
		host.Close()
		return err
	}
	return nil
}

func (a *App) initStack() error {
	a.Relay = relay.New(a.Logger, relay.Options{
		BufferSize: a.Config.Relay.BufferSize,
		Heartbeat:  a.Config.Relay.GetHeartbeat(),
	})
	a.Monitor = monitor.New(a.Relay, a.Logger)
	a.stopObserve = a.Monitor.Observe(a.Host)

	f, err := facade.New(a.Host, a.Monitor, a.Logger)
	if err != nil {
		a.stopObserve()
		a.Relay.Close()
		return fmt.Errorf("failed to create storage facade: %w", err)
	}
	a.Facade = f
	a.View = surface.NewView(f, a.Logger)
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.View, a.Logger, !a.Config.IsProduction())
	a.HealthHandler = handlers.NewHealthHandler(a.View, a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.TargetHandler = handlers.NewTargetHandler(a.View, a.Logger)
	a.StorageHandler = handlers.NewStorageHandler(a.View, a.Logger)
	a.WorkersHandler = handlers.NewWorkersHandler(a.View, a.Logger)
	a.CachesHandler = handlers.NewCachesHandler(a.View, a.Logger)
	a.ExchangeHandler = handlers.NewExchangeHandler(a.View, a.Logger)
	a.EventStream = relay.NewEventStream(a.Relay)
	a.PanelHandler = panel.NewHandler(a.View, a.Relay, a.Logger)
	a.MCPHandler = mcp.NewHandler(a.View, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops observing the host, drains the relay and detaches from the
// browser.
func (a *App) Close() error {
	if a.stopObserve != nil {
		a.stopObserve()
	}
	if a.Relay != nil {
		a.Relay.Close()
	}
	if a.Host != nil {
		return a.Host.Close()
	}
	return nil
}
