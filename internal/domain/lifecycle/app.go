package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/domain/router"
	"github.com/GriffinCanCode/microfront/internal/domain/sandbox"
	"github.com/GriffinCanCode/microfront/internal/domain/source"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Sandbox is the execution context the lifecycle drives. Resolve is the
// global-export lookup used for UMD detection; the lifecycle never sees
// the underlying VM.
type Sandbox interface {
	Start(baseRoute string) error
	Stop() error
	Exec(code string) error
	RecordSnapshot()
	RebuildSnapshot()
	Resolve(libraryName string) (*sandbox.Hooks, bool)
	DispatchEvent(channel string, detail map[string]interface{})
	DeleteGlobal(name string)
}

// Loader fetches an app's source asynchronously. *App implements
// source.Target, so the concrete loader plugs in directly.
type Loader interface {
	Load(ctx context.Context, t source.Target)
}

// Notifier delivers lifecycle notifications to the host page and the
// sub-app. Failures never propagate back as errors.
type Notifier interface {
	DispatchHost(app, channel string, detail map[string]interface{})
	DispatchApp(app, channel string, detail map[string]interface{})
}

// Options configures one app instance.
type Options struct {
	Name           string
	URL            string
	Container      *dom.Element
	BaseRoute      string
	Library        string // overrides the container's library attribute
	KeepAlive      bool
	Prefetch       bool // load and cache resources, render nothing
	DisableSandbox bool

	// OnDestroy drops the registry entry on full destroy. Insertion is
	// the caller's job; only removal is driven from inside.
	OnDestroy func(name string)
}

// Deps are the collaborators shared across app instances.
type Deps struct {
	Loader   Loader
	Router   *router.Core
	Sandbox  Sandbox
	Notifier Notifier
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// App is one micro app's lifecycle state machine. Every state transition
// triggered by an asynchronous completion re-validates the current state
// under the lock, because unmount may have been requested while a load or
// hook was still pending.
type App struct {
	mu sync.Mutex

	id        string
	name      string
	url       string
	createdAt time.Time

	state     types.State
	keepAlive types.KeepAliveState
	loadLevel int

	source             *types.Source
	container          *dom.Element
	keepAliveContainer *dom.Element
	pendingContainer   *dom.Element

	baseRoute      string
	libraryName    string
	keepAliveMode  bool
	prefetch       bool
	disableSandbox bool

	isUMD        bool
	hooks        *sandbox.Hooks
	mountedFired bool

	binding   *router.Binding
	sb        Sandbox
	loader    Loader
	routing   *router.Core
	notify    Notifier
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	onDestroy func(name string)
}

// New constructs an app instance and immediately starts loading its
// source. The caller must have checked name uniqueness against the
// registry and is responsible for the registry insertion.
func New(ctx context.Context, opts Options, deps Deps) *App {
	a := &App{
		id:               uuid.New().String(),
		name:             opts.Name,
		url:              opts.URL,
		createdAt:        time.Now(),
		state:            types.StateNotLoaded,
		loadLevel:        types.LoadLevelNotStart,
		source:           types.NewSource(),
		pendingContainer: opts.Container,
		baseRoute:        opts.BaseRoute,
		libraryName:      opts.Library,
		keepAliveMode:    opts.KeepAlive,
		prefetch:         opts.Prefetch,
		disableSandbox:   opts.DisableSandbox,
		binding:          deps.Router.NewBinding(opts.Name, opts.URL),
		sb:               deps.Sandbox,
		loader:           deps.Loader,
		routing:          deps.Router,
		notify:           deps.Notifier,
		logger:           deps.Logger.ForApp(opts.Name),
		metrics:          deps.Metrics,
		onDestroy:        opts.OnDestroy,
	}
	a.loader.Load(ctx, a)
	return a
}

// Name returns the app's unique name.
func (a *App) Name() string { return a.name }

// URL returns the app's entry URL.
func (a *App) URL() string { return a.url }

// Source returns the app's source record, owned by the loader until both
// channels complete.
func (a *App) Source() *types.Source { return a.source }

// Binding returns the app's long-lived router binding.
func (a *App) Binding() *router.Binding { return a.binding }

// State returns the current main state.
func (a *App) State() types.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// KeepAliveState returns the keep-alive sub-state.
func (a *App) KeepAliveState() types.KeepAliveState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keepAlive
}

// Info returns a read-only snapshot of the instance.
func (a *App) Info() types.AppInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.AppInfo{
		ID:        a.id,
		Name:      a.name,
		URL:       a.url,
		State:     a.state,
		KeepAlive: a.keepAlive,
		UMDMode:   a.isUMD,
		Library:   a.libraryName,
		BaseRoute: a.baseRoute,
		Prefetch:  a.prefetch,
		CreatedAt: a.createdAt,
	}
}

// OnLoad is called once per completed resource channel. Mounting is
// attempted only when both channels have signaled, regardless of which
// finished first.
func (a *App) OnLoad(html *dom.Element) {
	a.mu.Lock()
	if a.loadLevel == types.LoadLevelError {
		a.mu.Unlock()
		return
	}
	a.loadLevel++
	if a.loadLevel != types.LoadLevelComplete {
		a.mu.Unlock()
		return
	}
	// Prefetch instances cache resources but never render; an app that
	// unmounted while loading must stay inert.
	if a.prefetch || a.state == types.StateUnmount {
		a.mu.Unlock()
		return
	}
	a.state = types.StateLoadSourceFinished
	a.mu.Unlock()

	a.Mount(nil, "")
}

// OnLoadError marks the load failed. A late error arriving after the app
// already unmounted must not transition state.
func (a *App) OnLoadError(err error) {
	a.mu.Lock()
	a.loadLevel = types.LoadLevelError
	if a.state == types.StateUnmount {
		a.mu.Unlock()
		return
	}
	a.state = types.StateLoadSourceError
	a.mu.Unlock()

	a.reportError(err)
}

// reportError surfaces a failure to the host via the error channel. It
// never changes state itself.
func (a *App) reportError(err error) {
	a.logger.Error("app error", zap.Error(err))
	a.notify.DispatchHost(a.name, types.EventError, map[string]interface{}{
		"message": err.Error(),
	})
}
