package types

import "time"

// Host-facing lifecycle event channels, delivered synchronously on the
// app's container.
const (
	EventBeforeMount = "beforemount"
	EventMounted     = "mounted"
	EventUnmount     = "unmount"
	EventError       = "error"
	EventAfterHidden = "afterhidden"
	EventAfterShow   = "aftershow"
)

// Sub-app-facing custom event channels, delivered inside the sandbox.
const (
	AppEventUnmount     = "unmount"
	AppEventStateChange = "appstate-change"
)

// Event is one lifecycle notification.
type Event struct {
	App     string                 `json:"app"`
	Channel string                 `json:"channel"`
	ToApp   bool                   `json:"to_app,omitempty"` // sub-app-facing when true
	Detail  map[string]interface{} `json:"detail,omitempty"`
	Time    time.Time              `json:"time"`
}
