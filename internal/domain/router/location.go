package router

import (
	"net/url"
	"strings"
	"sync"
)

// VirtualLocation is one app's private view of URL state, independent of
// the shared browser URL. It persists across hide/show cycles and is only
// reset to the default derived from the app's entry URL on a full
// teardown without keepRouteState.
type VirtualLocation struct {
	mu       sync.RWMutex
	pathname string
	search   string // includes leading "?" when non-empty
	hash     string // includes leading "#" when non-empty
}

// NewVirtualLocation derives a location from the app's entry URL.
func NewVirtualLocation(rawURL string) *VirtualLocation {
	l := &VirtualLocation{}
	l.Reset(rawURL)
	return l
}

// Reset restores the default location derived from the entry URL.
func (l *VirtualLocation) Reset(rawURL string) {
	pathname, search, hash := "/", "", ""
	if u, err := url.Parse(rawURL); err == nil {
		if u.Path != "" {
			pathname = u.Path
		}
		if u.RawQuery != "" {
			search = "?" + u.RawQuery
		}
		if u.Fragment != "" {
			hash = "#" + u.Fragment
		}
	}
	l.mu.Lock()
	l.pathname, l.search, l.hash = pathname, search, hash
	l.mu.Unlock()
}

// SetFromPath imports an encoded "pathname?search#hash" string, as decoded
// from the shared browser URL.
func (l *VirtualLocation) SetFromPath(full string) {
	pathname, search, hash := full, "", ""
	if i := strings.Index(pathname, "#"); i >= 0 {
		hash = pathname[i:]
		pathname = pathname[:i]
	}
	if i := strings.Index(pathname, "?"); i >= 0 {
		search = pathname[i:]
		pathname = pathname[:i]
	}
	if pathname == "" {
		pathname = "/"
	}
	l.mu.Lock()
	l.pathname, l.search, l.hash = pathname, search, hash
	l.mu.Unlock()
}

// FullPath returns pathname+search+hash, the form encoded into the shared
// browser URL.
func (l *VirtualLocation) FullPath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pathname + l.search + l.hash
}

// Pathname returns the virtual pathname.
func (l *VirtualLocation) Pathname() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pathname
}

// Search returns the virtual search string, with leading "?".
func (l *VirtualLocation) Search() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.search
}

// Hash returns the virtual hash, with leading "#".
func (l *VirtualLocation) Hash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hash
}

// VirtualHistory wraps a VirtualLocation with an app-private state
// payload, mirroring the browser History interface. All writes sync to
// the shared browser URL as history replaces, never pushes, so internal
// navigation never pollutes the end user's back-history.
type VirtualHistory struct {
	name string
	loc  *VirtualLocation
	core *Core

	mu    sync.RWMutex
	state interface{}
}

// PushState records new state and path. Despite the name, the shared URL
// sync is still a replace.
func (h *VirtualHistory) PushState(state interface{}, path string) {
	h.setState(state)
	if path != "" {
		h.loc.SetFromPath(path)
	}
	h.core.UpdateBrowserURL(h.name, h.loc, state)
}

// ReplaceState replaces state and path.
func (h *VirtualHistory) ReplaceState(state interface{}, path string) {
	h.PushState(state, path)
}

// State returns the app-private state payload.
func (h *VirtualHistory) State() interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *VirtualHistory) setState(state interface{}) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

// Binding is the long-lived router binding of one app: its virtual
// location and history. It survives hide/show cycles.
type Binding struct {
	Name     string
	Location *VirtualLocation
	History  *VirtualHistory
}

// NewBinding creates the binding for an app rooted at its entry URL.
func (c *Core) NewBinding(name, rawURL string) *Binding {
	loc := NewVirtualLocation(rawURL)
	return &Binding{
		Name:     name,
		Location: loc,
		History:  &VirtualHistory{name: name, loc: loc, core: c},
	}
}
