package lifecycle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

var (
	// ErrNoContainer is reported when mount is attempted without any
	// container to render into.
	ErrNoContainer = errors.New("no container to mount into")
	// ErrSourceFailed is reported when mount is attempted on an app
	// whose source load already failed.
	ErrSourceFailed = errors.New("source failed to load")
)

// Mount is the idempotent mount entry point, callable both from OnLoad
// and from the host. If resources are not yet fully loaded it records the
// intent and returns; the eventual OnLoad re-invokes it.
func (a *App) Mount(container *dom.Element, baseRoute string) {
	a.mu.Lock()
	if container != nil {
		a.pendingContainer = container
	}
	if baseRoute != "" {
		a.baseRoute = baseRoute
	}

	if a.state == types.StateMounting || a.state == types.StateMounted {
		a.mu.Unlock()
		return
	}
	if a.loadLevel == types.LoadLevelError {
		// No reload is in flight; LOAD_SOURCE_ERROR must survive so the
		// eventual unmount still forces destroy.
		a.mu.Unlock()
		a.reportError(ErrSourceFailed)
		return
	}
	if a.loadLevel != types.LoadLevelComplete {
		a.state = types.StateLoadingSourceCode
		a.mu.Unlock()
		return
	}
	if a.state == types.StateUnmount {
		// Explicit remount of an unmounted app. Leaving UNMOUNT here
		// keeps the async guards meaningful: only an unmount issued
		// after this point aborts the mount in progress.
		a.state = types.StateLoadSourceFinished
	}

	target := a.pendingContainer
	if target == nil {
		target = a.container
	}
	a.mu.Unlock()

	if target == nil {
		a.reportError(ErrNoContainer)
		return
	}

	a.notify.DispatchHost(a.name, types.EventBeforeMount, nil)

	a.mu.Lock()
	// Re-validate: a beforemount listener may have unmounted the app,
	// and a concurrent Mount may have won the race past the first guard.
	if a.state == types.StateUnmount ||
		a.state == types.StateMounting || a.state == types.StateMounted {
		a.mu.Unlock()
		return
	}
	a.state = types.StateMounting
	a.mountedFired = false
	a.container = target
	a.pendingContainer = nil
	a.keepAliveContainer = nil
	if a.libraryName == "" {
		a.libraryName = a.resolveLibraryName()
	}
	a.source.HTML.CloneChildrenInto(a.container)
	umd := a.isUMD
	a.mu.Unlock()

	if err := a.sb.Start(a.baseRoute); err != nil {
		a.reportError(fmt.Errorf("sandbox start failed: %w", err))
		return
	}
	a.routing.InitRouteState(a.name, a.url, a.binding.Location)

	if umd {
		// Remount of a known UMD bundle: restore the recorded world and
		// call the cached hook, never re-running the script set.
		a.sb.RebuildSnapshot()
		a.invokeMountHook()
		return
	}
	a.runScripts()
}

// resolveLibraryName picks the UMD export name: the container's library
// attribute, else micro-app-<name>. Caller holds the lock.
func (a *App) resolveLibraryName() string {
	if lib := a.container.GetAttribute("library"); lib != "" {
		return lib
	}
	return "micro-app-" + a.name
}

// runScripts executes the script set in document order against the
// sandboxed global, probing for a UMD export after each script. The
// mounted notification fires on script completion, unless a UMD export
// was detected, in which case the mount hook's settlement owns it.
func (a *App) runScripts() {
	allOK := true
	for _, key := range a.source.Order {
		script := a.source.Scripts[key]
		if err := a.sb.Exec(script.Code); err != nil {
			allOK = false
			a.reportError(fmt.Errorf("script failed: %w", err))
			continue
		}
		a.probeUMD()
	}

	if !allOK {
		a.logger.Warn("script set completed with failures")
	}

	a.mu.Lock()
	umd := a.isUMD
	a.mu.Unlock()
	if !umd {
		// Plain script apps mount on script completion. For UMD apps
		// the hook's settlement owns the notification, which may still
		// be pending here.
		a.dispatchMounted()
	}
}

// probeUMD checks the sandbox global for a mount/unmount export. On first
// detection it captures the hooks, flips to UMD mode, snapshots the
// sandbox, and synchronously invokes the mount hook.
func (a *App) probeUMD() {
	a.mu.Lock()
	if a.isUMD {
		a.mu.Unlock()
		return
	}
	library := a.libraryName
	a.mu.Unlock()

	hooks, ok := a.sb.Resolve(library)
	if !ok {
		return
	}

	a.mu.Lock()
	a.isUMD = true
	a.hooks = hooks
	a.mu.Unlock()

	a.logger.Info("umd export detected", zap.String("library", library))
	if a.metrics != nil {
		a.metrics.UMDDetections.Inc()
	}
	a.sb.RecordSnapshot()
	a.invokeMountHook()
}

// invokeMountHook calls the captured UMD mount hook. A deferred result
// delays the mounted notification until it settles; rejection is reported
// but does not itself change state. A rejection arriving after the app
// unmounted is suppressed by the same guard the success path uses.
func (a *App) invokeMountHook() {
	a.mu.Lock()
	hooks := a.hooks
	a.mu.Unlock()
	if hooks == nil {
		return
	}

	deferred := hooks.Mount(map[string]interface{}{
		"name": a.name,
		"url":  a.url,
	})
	deferred.Then(
		func(interface{}) { a.dispatchMounted() },
		func(err error) {
			if a.metrics != nil {
				a.metrics.HookErrors.WithLabelValues("mount").Inc()
			}
			a.mu.Lock()
			unmounted := a.state == types.StateUnmount
			a.mu.Unlock()
			if unmounted {
				a.logger.Warn("mount hook rejected after unmount", zap.Error(err))
				return
			}
			a.reportError(fmt.Errorf("mount hook failed: %w", err))
		},
	)
}

// dispatchMounted fires the mounted notification exactly once per mount
// cycle, unless unmount pre-empted the completion.
func (a *App) dispatchMounted() {
	a.mu.Lock()
	if a.state == types.StateUnmount || a.mountedFired {
		guarded := a.state == types.StateUnmount
		a.mu.Unlock()
		if guarded && a.metrics != nil {
			a.metrics.MountsTotal.WithLabelValues("guarded").Inc()
		}
		return
	}
	a.mountedFired = true
	a.state = types.StateMounted
	if a.keepAliveMode {
		a.keepAlive = types.KeepAliveShown
	}
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.MountsTotal.WithLabelValues("mounted").Inc()
	}
	a.notify.DispatchHost(a.name, types.EventMounted, nil)
}
