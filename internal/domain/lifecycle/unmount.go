package lifecycle

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/shared/async"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Unmount tears the app down. With destroy the registry entry is dropped
// and the name becomes reconstructible; without it a UMD app keeps its
// cached source and snapshot for a fast remount. A failed app is never
// kept alive: LOAD_SOURCE_ERROR forces destroy.
//
// Entering StateUnmount first pre-empts any asynchronous mount completion
// still in flight; the guards in OnLoad and dispatchMounted turn those
// late completions into no-ops.
func (a *App) Unmount(destroy, keepRouteState bool) {
	a.mu.Lock()
	if a.state == types.StateUnmount {
		a.mu.Unlock()
		return
	}
	if a.state == types.StateLoadSourceError {
		destroy = true
	}
	a.state = types.StateUnmount
	a.keepAlive = types.KeepAliveNone
	hooks := a.hooks
	isUMD := a.isUMD
	a.mu.Unlock()

	if a.metrics != nil {
		mode := "keep"
		if destroy {
			mode = "destroy"
		}
		a.metrics.UnmountsTotal.WithLabelValues(mode).Inc()
	}

	// The hook runs first; the sub-app's unmount notification follows it.
	var deferred *async.Deferred
	if isUMD && hooks != nil {
		deferred = hooks.Unmount(map[string]interface{}{"name": a.name})
	} else {
		deferred = async.Resolved(nil)
	}

	a.sb.DispatchEvent(types.AppEventUnmount, nil)
	a.notify.DispatchApp(a.name, types.AppEventUnmount, nil)

	// Success and failure converge: teardown always completes, a
	// misbehaving sub-app must never prevent resource release.
	deferred.Then(
		func(interface{}) { a.finalizeUnmount(destroy, keepRouteState) },
		func(err error) {
			a.logger.Warn("unmount hook failed", zap.Error(err))
			if a.metrics != nil {
				a.metrics.HookErrors.WithLabelValues("unmount").Inc()
			}
			a.finalizeUnmount(destroy, keepRouteState)
		},
	)
}

func (a *App) finalizeUnmount(destroy, keepRouteState bool) {
	a.notify.DispatchHost(a.name, types.EventUnmount, nil)

	keep := keepRouteState && !destroy
	a.routing.ClearRouteState(a.name, a.url, a.binding.Location, keep)
	if err := a.sb.Stop(); err != nil {
		a.logger.Warn("sandbox stop failed", zap.Error(err))
	}

	a.mu.Lock()
	container := a.container
	if container == nil {
		// A hidden keep-alive app's content lives offscreen.
		container = a.keepAliveContainer
	}
	a.container = nil
	a.keepAliveContainer = nil
	a.pendingContainer = nil
	preserve := !destroy && a.isUMD && container != nil && container.HasChildren()
	library := a.libraryName
	a.mu.Unlock()

	if preserve {
		// Re-capture rendered children into the cached fragment so side
		// effects applied to the live tree survive the next remount.
		container.CloneChildrenInto(a.source.HTML)
	}
	if container != nil {
		container.ClearChildren()
	}

	if destroy {
		if a.disableSandbox && library != "" {
			// Without isolation the UMD export landed on the shared
			// global; drop it so a reconstructed app cannot see it.
			a.sb.DeleteGlobal(library)
		}
		if a.onDestroy != nil {
			a.onDestroy(a.name)
		}
	}
	a.logger.Info("app unmounted", zap.Bool("destroy", destroy))
}
