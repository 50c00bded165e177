package types

import "time"

// State represents the main lifecycle state of a micro app.
type State string

const (
	StateNotLoaded          State = "not_loaded"
	StateLoadingSourceCode  State = "loading_source_code"
	StateLoadSourceFinished State = "load_source_finished"
	StateLoadSourceError    State = "load_source_error"
	StateMounting           State = "mounting"
	StateMounted            State = "mounted"
	StateUnmount            State = "unmount"
)

// KeepAliveState is the orthogonal keep-alive sub-state, meaningful only
// while the main state is not StateUnmount.
type KeepAliveState string

const (
	KeepAliveNone   KeepAliveState = ""
	KeepAliveHidden KeepAliveState = "keep_alive_hidden"
	KeepAliveShown  KeepAliveState = "keep_alive_shown"
)

// Source load levels for the two-channel completion counter.
const (
	LoadLevelError    = -1
	LoadLevelNotStart = 0
	LoadLevelPartial  = 1
	LoadLevelComplete = 2
)

// AppInfo is the read-only view of an app instance returned by the
// registry and the HTTP API.
type AppInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	State     State          `json:"state"`
	KeepAlive KeepAliveState `json:"keep_alive,omitempty"`
	UMDMode   bool           `json:"umd_mode"`
	Library   string         `json:"library,omitempty"`
	BaseRoute string         `json:"base_route,omitempty"`
	Prefetch  bool           `json:"prefetch"`
	CreatedAt time.Time      `json:"created_at"`
}

// Stats contains registry statistics.
type Stats struct {
	TotalApps   int `json:"total_apps"`
	MountedApps int `json:"mounted_apps"`
	HiddenApps  int `json:"hidden_apps"`
}
