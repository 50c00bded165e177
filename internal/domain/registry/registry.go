package registry

import (
	"fmt"
	"sync"

	"github.com/GriffinCanCode/microfront/internal/domain/lifecycle"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Registry is the process-wide map from app name to lifecycle instance:
// the single source of truth for which apps are active. Entries are
// inserted on construction and removed only on full destroy, so a name
// becomes reconstructible exactly when its previous instance is gone.
type Registry struct {
	mu      sync.RWMutex
	apps    map[string]*lifecycle.App
	metrics *monitoring.Metrics
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{apps: make(map[string]*lifecycle.App)}
}

// WithMetrics adds metrics tracking to the registry.
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	return r
}

// Insert adds a freshly constructed app. It fails when the name is
// already taken.
func (r *Registry) Insert(app *lifecycle.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[app.Name()]; exists {
		return fmt.Errorf("app %q already exists", app.Name())
	}
	r.apps[app.Name()] = app
	if r.metrics != nil {
		r.metrics.AppsActive.Set(float64(len(r.apps)))
	}
	return nil
}

// Has reports whether a name is taken.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.apps[name]
	return ok
}

// Get retrieves an app by name.
func (r *Registry) Get(name string) (*lifecycle.App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[name]
	return app, ok
}

// Remove drops an app's entry. Called only on full destroy.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.apps, name)
	if r.metrics != nil {
		r.metrics.AppsActive.Set(float64(len(r.apps)))
	}
}

// ListAll returns snapshots of every registered app.
func (r *Registry) ListAll() []types.AppInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]types.AppInfo, 0, len(r.apps))
	for _, app := range r.apps {
		infos = append(infos, app.Info())
	}
	return infos
}

// ListActive returns snapshots of apps that are mounted or mounting.
func (r *Registry) ListActive() []types.AppInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]types.AppInfo, 0, len(r.apps))
	for _, app := range r.apps {
		info := app.Info()
		if info.State == types.StateMounting || info.State == types.StateMounted {
			infos = append(infos, info)
		}
	}
	return infos
}

// Stats returns registry statistics.
func (r *Registry) Stats() types.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := types.Stats{TotalApps: len(r.apps)}
	for _, app := range r.apps {
		info := app.Info()
		if info.State == types.StateMounted {
			stats.MountedApps++
		}
		if info.KeepAlive == types.KeepAliveHidden {
			stats.HiddenApps++
		}
	}
	return stats
}
