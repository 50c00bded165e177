package lifecycle

import (
	"errors"

	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

var (
	// ErrNotKeepAlive is returned for hide/show on an app not configured
	// for keep-alive.
	ErrNotKeepAlive = errors.New("app is not in keep-alive mode")
	// ErrNotHidden is returned when showing an app that is not hidden.
	ErrNotHidden = errors.New("app is not hidden")
)

// Hide moves the rendered content into an offscreen keep-alive container
// via a non-destructive clone. The main state and the sandbox's running
// status are untouched; only the keep-alive sub-state changes.
func (a *App) Hide() error {
	a.mu.Lock()
	if !a.keepAliveMode {
		a.mu.Unlock()
		return ErrNotKeepAlive
	}
	if a.state == types.StateUnmount || a.keepAlive == types.KeepAliveHidden {
		a.mu.Unlock()
		return nil
	}
	live := a.container
	if live == nil {
		a.mu.Unlock()
		return ErrNoContainer
	}

	offscreen := dom.NewElement("micro-app-keepalive")
	live.CloneChildrenInto(offscreen)
	live.ClearChildren()
	a.keepAliveContainer = offscreen
	a.container = nil
	a.keepAlive = types.KeepAliveHidden
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.AppsKeptAlive.Inc()
	}
	// The route trace leaves the shared URL, but the virtual location
	// survives for the next show.
	a.routing.ClearRouteState(a.name, a.url, a.binding.Location, true)

	a.notify.DispatchHost(a.name, types.EventAfterHidden, nil)
	detail := map[string]interface{}{"appState": types.EventAfterHidden}
	a.sb.DispatchEvent(types.AppEventStateChange, detail)
	a.notify.DispatchApp(a.name, types.AppEventStateChange, detail)
	return nil
}

// Show reattaches a hidden app to a live container.
func (a *App) Show(container *dom.Element) error {
	a.mu.Lock()
	if !a.keepAliveMode {
		a.mu.Unlock()
		return ErrNotKeepAlive
	}
	if a.state == types.StateUnmount || a.keepAlive != types.KeepAliveHidden {
		a.mu.Unlock()
		return ErrNotHidden
	}
	if container == nil {
		a.mu.Unlock()
		return ErrNoContainer
	}

	a.keepAliveContainer.CloneChildrenInto(container)
	a.container = container
	a.keepAliveContainer = nil
	a.keepAlive = types.KeepAliveShown
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.AppsKeptAlive.Dec()
	}
	// Re-entering the shared URL goes through the same init precedence
	// as a first start, so back/forward repositioning wins.
	a.routing.InitRouteState(a.name, a.url, a.binding.Location)

	a.notify.DispatchHost(a.name, types.EventAfterShow, nil)
	detail := map[string]interface{}{"appState": types.EventAfterShow}
	a.sb.DispatchEvent(types.AppEventStateChange, detail)
	a.notify.DispatchApp(a.name, types.AppEventStateChange, detail)
	return nil
}
