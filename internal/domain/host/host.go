package host

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/domain/events"
	"github.com/GriffinCanCode/microfront/internal/domain/lifecycle"
	"github.com/GriffinCanCode/microfront/internal/domain/registry"
	"github.com/GriffinCanCode/microfront/internal/domain/router"
	"github.com/GriffinCanCode/microfront/internal/domain/sandbox"
	"github.com/GriffinCanCode/microfront/internal/domain/source"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/config"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Host ties registry, loader, router, sandboxes, and event dispatch
// together behind one facade. All app operations enter here.
type Host struct {
	mu             sync.Mutex
	registry       *registry.Registry
	loader         *source.Loader
	router         *router.Core
	dispatcher     *events.Dispatcher
	sandboxCfg     sandbox.Config
	sandboxEnabled bool
	logger         *logging.Logger
	metrics        *monitoring.Metrics
}

// CreateRequest describes a new app.
type CreateRequest struct {
	Name           string `json:"name" binding:"required"`
	URL            string `json:"url" binding:"required"`
	Library        string `json:"library,omitempty"`
	BaseRoute      string `json:"base_route,omitempty"`
	KeepAlive      bool   `json:"keep_alive,omitempty"`
	Prefetch       bool   `json:"prefetch,omitempty"`
	DisableSandbox bool   `json:"disable_sandbox,omitempty"`
}

// New creates the host facade.
func New(reg *registry.Registry, loader *source.Loader, core *router.Core,
	dispatcher *events.Dispatcher, sandboxCfg config.SandboxConfig,
	logger *logging.Logger, metrics *monitoring.Metrics) *Host {
	return &Host{
		registry:       reg,
		loader:         loader,
		router:         core,
		dispatcher:     dispatcher,
		sandboxCfg:     sandbox.Config{ExecTimeout: sandboxCfg.ExecTimeout, MaxCallStack: sandboxCfg.MaxCallStack},
		sandboxEnabled: sandboxCfg.Enabled,
		logger:         logger,
		metrics:        metrics,
	}
}

// CreateApp constructs and registers a new app, which immediately starts
// loading and mounts itself once both source channels complete. Prefetch
// requests warm the source cache without touching the registry.
func (h *Host) CreateApp(ctx context.Context, req CreateRequest) (types.AppInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if req.Prefetch {
		app := h.construct(ctx, req)
		return app.Info(), nil
	}

	if h.registry.Has(req.Name) {
		return types.AppInfo{}, fmt.Errorf("app %q already exists", req.Name)
	}
	app := h.construct(ctx, req)
	if err := h.registry.Insert(app); err != nil {
		return types.AppInfo{}, err
	}
	h.logger.Info("app created",
		zap.String("app", req.Name), zap.String("url", req.URL))
	return app.Info(), nil
}

func (h *Host) construct(ctx context.Context, req CreateRequest) *lifecycle.App {
	container := dom.NewElement("micro-app")
	container.SetAttribute("name", req.Name)
	if req.Library != "" {
		container.SetAttribute("library", req.Library)
	}

	return lifecycle.New(ctx, lifecycle.Options{
		Name:           req.Name,
		URL:            req.URL,
		Container:      container,
		BaseRoute:      req.BaseRoute,
		Library:        req.Library,
		KeepAlive:      req.KeepAlive,
		Prefetch:       req.Prefetch,
		DisableSandbox: req.DisableSandbox || !h.sandboxEnabled,
		OnDestroy: func(name string) {
			h.registry.Remove(name)
			h.dispatcher.Forget(name)
		},
	}, lifecycle.Deps{
		Loader:   h.loader,
		Router:   h.router,
		Sandbox:  sandbox.New(req.Name, h.sandboxCfg, h.logger),
		Notifier: h.dispatcher,
		Logger:   h.logger,
		Metrics:  h.metrics,
	})
}

// Mount remounts an existing app into a fresh container, e.g. after an
// unmount without destroy.
func (h *Host) Mount(name, baseRoute string) error {
	app, ok := h.registry.Get(name)
	if !ok {
		return fmt.Errorf("app %q not found", name)
	}
	container := dom.NewElement("micro-app")
	container.SetAttribute("name", name)
	app.Mount(container, baseRoute)
	return nil
}

// Unmount tears an app down.
func (h *Host) Unmount(name string, destroy, keepRouteState bool) error {
	app, ok := h.registry.Get(name)
	if !ok {
		return fmt.Errorf("app %q not found", name)
	}
	app.Unmount(destroy, keepRouteState)
	return nil
}

// Hide moves a keep-alive app offscreen.
func (h *Host) Hide(name string) error {
	app, ok := h.registry.Get(name)
	if !ok {
		return fmt.Errorf("app %q not found", name)
	}
	return app.Hide()
}

// Show reattaches a hidden keep-alive app.
func (h *Host) Show(name string) error {
	app, ok := h.registry.Get(name)
	if !ok {
		return fmt.Errorf("app %q not found", name)
	}
	container := dom.NewElement("micro-app")
	container.SetAttribute("name", name)
	return app.Show(container)
}

// Get returns one app's snapshot.
func (h *Host) Get(name string) (types.AppInfo, bool) {
	app, ok := h.registry.Get(name)
	if !ok {
		return types.AppInfo{}, false
	}
	return app.Info(), true
}

// List returns snapshots of all apps, or only active ones.
func (h *Host) List(activeOnly bool) []types.AppInfo {
	if activeOnly {
		return h.registry.ListActive()
	}
	return h.registry.ListAll()
}

// Stats returns registry statistics.
func (h *Host) Stats() types.Stats {
	return h.registry.Stats()
}

// Router returns the shared router core.
func (h *Host) Router() *router.Core {
	return h.router
}

// Events returns the event dispatcher.
func (h *Host) Events() *events.Dispatcher {
	return h.dispatcher
}
