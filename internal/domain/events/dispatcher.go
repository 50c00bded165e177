package events

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Listener receives one lifecycle event.
type Listener func(types.Event)

// Dispatcher delivers lifecycle notifications. Host-facing and
// sub-app-facing events share one fan-out: per-app listeners run
// synchronously in dispatch order, then the event is offered to every
// subscriber channel without blocking.
type Dispatcher struct {
	mu          sync.RWMutex
	listeners   map[string][]Listener // app name -> listeners
	subscribers map[int]chan types.Event
	nextSub     int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners:   make(map[string][]Listener),
		subscribers: make(map[int]chan types.Event),
	}
}

// Listen registers a synchronous listener for one app's events.
func (d *Dispatcher) Listen(app string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[app] = append(d.listeners[app], fn)
}

// Forget drops all listeners for an app. Called on full destroy.
func (d *Dispatcher) Forget(app string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, app)
}

// Subscribe returns a channel receiving every event plus a cancel
// function. Slow subscribers miss events rather than block dispatch.
func (d *Dispatcher) Subscribe() (<-chan types.Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	ch := make(chan types.Event, 64)
	d.subscribers[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if sub, ok := d.subscribers[id]; ok {
			delete(d.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// DispatchHost delivers a host-facing event on the app's container.
func (d *Dispatcher) DispatchHost(app, channel string, detail map[string]interface{}) {
	d.dispatch(types.Event{App: app, Channel: channel, Detail: detail, Time: time.Now()})
}

// DispatchApp delivers a sub-app-facing custom event.
func (d *Dispatcher) DispatchApp(app, channel string, detail map[string]interface{}) {
	d.dispatch(types.Event{App: app, Channel: channel, ToApp: true, Detail: detail, Time: time.Now()})
}

func (d *Dispatcher) dispatch(ev types.Event) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners[ev.App]))
	copy(listeners, d.listeners[ev.App])
	d.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}

	// Sends stay under the read lock: cancel closes channels under the
	// write lock, so no send can hit a closed channel.
	d.mu.RLock()
	for _, ch := range d.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	d.mu.RUnlock()
}
