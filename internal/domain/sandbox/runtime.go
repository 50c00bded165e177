package sandbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/shared/async"
)

// Config defines sandbox configuration.
type Config struct {
	ExecTimeout  time.Duration // per-script execution timeout
	MaxCallStack int
}

// DefaultConfig returns the production sandbox configuration.
func DefaultConfig() Config {
	return Config{
		ExecTimeout:  5 * time.Second,
		MaxCallStack: 1024,
	}
}

// Hooks are mount/unmount functions captured from a UMD export. Both
// return a Deferred so promise-shaped results flow through the same
// continuation path as synchronous ones.
type Hooks struct {
	Mount   func(data map[string]interface{}) *async.Deferred
	Unmount func(data map[string]interface{}) *async.Deferred
}

// Runtime is one app's isolated execution context: a goja VM with its own
// global object, app-facing event listeners, and snapshot support for UMD
// remounts.
type Runtime struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	config  Config
	name    string
	logger  *logging.Logger
	running bool

	snapshot  map[string]goja.Value
	listeners map[string][]goja.Callable
}

// New creates a stopped runtime for one app.
func New(name string, config Config, logger *logging.Logger) *Runtime {
	r := &Runtime{
		config:    config,
		name:      name,
		logger:    logger.ForApp(name),
		listeners: make(map[string][]goja.Callable),
	}
	r.vm = r.freshVM()
	return r
}

func (r *Runtime) freshVM() *goja.Runtime {
	vm := goja.New()
	if r.config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	// Keep Node-flavored escape hatches out of reach.
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())

	console := vm.NewObject()
	console.Set("log", r.makeConsoleFunc("info"))
	console.Set("info", r.makeConsoleFunc("info"))
	console.Set("warn", r.makeConsoleFunc("warn"))
	console.Set("error", r.makeConsoleFunc("error"))
	vm.Set("console", console)

	vm.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		if fn, ok := goja.AssertFunction(call.Arguments[1]); ok {
			r.listeners[name] = append(r.listeners[name], fn)
		}
		return goja.Undefined()
	})

	return vm
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		switch level {
		case "warn":
			r.logger.Warn(msg, zap.String("source", "sandbox"))
		case "error":
			r.logger.Error(msg, zap.String("source", "sandbox"))
		default:
			r.logger.Info(msg, zap.String("source", "sandbox"))
		}
		return goja.Undefined()
	}
}

// Start marks the context runnable and publishes the micro-app
// environment flags the sub-app's bundle reads.
func (r *Runtime) Start(baseRoute string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	r.vm.Set("__MICRO_APP_ENVIRONMENT__", true)
	r.vm.Set("__MICRO_APP_NAME__", r.name)
	r.vm.Set("__MICRO_APP_BASE_ROUTE__", baseRoute)
	r.running = true
	return nil
}

// Stop halts execution. The VM and its globals are retained so a recorded
// snapshot can rebuild the context on a UMD remount.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	r.listeners = make(map[string][]goja.Callable)
	return nil
}

// Exec runs one script against the sandboxed global.
func (r *Runtime) Exec(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return fmt.Errorf("sandbox %s is not running", r.name)
	}

	if r.config.ExecTimeout > 0 {
		timer := time.AfterFunc(r.config.ExecTimeout, func() {
			r.vm.Interrupt("execution timeout exceeded")
		})
		defer func() {
			timer.Stop()
			r.vm.ClearInterrupt()
		}()
	}

	if _, err := r.vm.RunString(code); err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// RecordSnapshot captures the current global property set. Called right
// after UMD detection so a remount can restore the post-execution world
// without re-running the script set.
func (r *Runtime) RecordSnapshot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	global := r.vm.GlobalObject()
	snap := make(map[string]goja.Value)
	for _, key := range global.Keys() {
		snap[key] = global.Get(key)
	}
	r.snapshot = snap
}

// RebuildSnapshot restores the recorded global property set: properties
// added since the snapshot are deleted, recorded ones are reinstated.
func (r *Runtime) RebuildSnapshot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		return
	}
	global := r.vm.GlobalObject()
	for _, key := range global.Keys() {
		if _, ok := r.snapshot[key]; !ok {
			global.Delete(key)
		}
	}
	for key, val := range r.snapshot {
		global.Set(key, val)
	}
}

// Resolve probes the proxied global for an export exposing both mount and
// unmount functions. This is the UMD detection capability the lifecycle
// depends on; it never reveals the VM itself.
func (r *Runtime) Resolve(libraryName string) (*Hooks, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exported := r.vm.GlobalObject().Get(libraryName)
	if exported == nil || goja.IsUndefined(exported) || goja.IsNull(exported) {
		return nil, false
	}
	obj := exported.ToObject(r.vm)
	mount, mountOK := goja.AssertFunction(obj.Get("mount"))
	unmount, unmountOK := goja.AssertFunction(obj.Get("unmount"))
	if !mountOK || !unmountOK {
		return nil, false
	}

	return &Hooks{
		Mount:   r.makeHook(mount, obj),
		Unmount: r.makeHook(unmount, obj),
	}, true
}

// makeHook wraps a goja callable into a deferred-returning Go closure.
// A returned promise maps its settled state onto the deferred; everything
// else, including a promise that is still pending, resolves immediately.
func (r *Runtime) makeHook(fn goja.Callable, this goja.Value) func(map[string]interface{}) *async.Deferred {
	return func(data map[string]interface{}) *async.Deferred {
		r.mu.Lock()
		defer r.mu.Unlock()

		result, err := fn(this, r.vm.ToValue(data))
		if err != nil {
			return async.Rejected(fmt.Errorf("hook failed: %w", err))
		}
		if result != nil {
			if promise, ok := result.Export().(*goja.Promise); ok {
				return deferredFromPromise(promise)
			}
		}
		return async.Resolved(exportValue(result))
	}
}

func deferredFromPromise(p *goja.Promise) *async.Deferred {
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return async.Resolved(p.Result().Export())
	case goja.PromiseStateRejected:
		return async.Rejected(fmt.Errorf("hook rejected: %v", p.Result()))
	default:
		// Still pending, and there is no event loop that could ever
		// settle it. An unsettled deferred here would wedge whatever
		// waits on the hook, so treat the pending promise as resolved.
		return async.Resolved(nil)
	}
}

// DispatchEvent invokes sub-app listeners registered for a channel.
func (r *Runtime) DispatchEvent(channel string, detail map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fn := range r.listeners[channel] {
		payload := r.vm.ToValue(map[string]interface{}{"type": channel, "detail": detail})
		if _, err := fn(goja.Undefined(), payload); err != nil {
			r.logger.Warn("app event listener failed",
				zap.String("channel", channel), zap.Error(err))
		}
	}
}

// DeleteGlobal drops a property from the proxied global. Used on full
// destroy when sandboxing is disabled, so a stale UMD export cannot leak
// into the next app constructed under the same name.
func (r *Runtime) DeleteGlobal(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm.GlobalObject().Delete(name)
}

// Running reports whether the context is started.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
