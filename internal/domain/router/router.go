package router

import (
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
)

// StateKey is the reserved field inside the shared history.state under
// which per-app payloads are nested. Host-page state outside this key is
// never touched.
const StateKey = "microAppState"

// Core encodes and decodes per-app routing state into the single shared
// browser URL and history.state, namespaced by app name. Encoding for one
// app is a no-op with respect to every other app's segment.
type Core struct {
	browser *Browser
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewCore creates the router core bound to the shared browser context.
func NewCore(browser *Browser, logger *logging.Logger) *Core {
	return &Core{browser: browser, logger: logger}
}

// WithMetrics adds metrics tracking to the core.
func (c *Core) WithMetrics(m *monitoring.Metrics) *Core {
	c.metrics = m
	return c
}

// Browser returns the shared browser context.
func (c *Core) Browser() *Browser {
	return c.browser
}

// InitRouteState positions an app's virtual location when the app starts
// (sandbox start, or a keep-alive app becoming visible again). Decoding
// takes precedence over exporting defaults: if the shared URL already
// carries a segment for name, browser navigation positioned this app and
// the segment is imported into loc. Otherwise loc is exported as the
// first-mount default route.
func (c *Core) InitRouteState(name, rawURL string, loc *VirtualLocation) {
	if seg, ok := getQueryParam(c.browser.RawQuery(), name); ok {
		loc.SetFromPath(seg)
		c.logger.Debug("imported route state from browser",
			zap.String("app", name), zap.String("path", seg))
		return
	}
	c.UpdateBrowserURL(name, loc, c.appState(name))
}

// UpdateBrowserURL encodes the app's current virtual location and private
// state into the shared URL and history.state via a history replace.
func (c *Core) UpdateBrowserURL(name string, loc *VirtualLocation, state interface{}) {
	query := setQueryParam(c.browser.RawQuery(), name, loc.FullPath())
	c.browser.Replace(query, c.mergeState(name, state, true))
	if c.metrics != nil {
		c.metrics.RouterReplaces.Inc()
	}
}

// ClearRouteState releases an app's routing trace on stop or hide. The
// app's segment and private state are always stripped from the shared
// URL; only the in-memory virtual location is preserved (keepRouteState)
// or reset to the default derived from the entry URL.
func (c *Core) ClearRouteState(name, rawURL string, loc *VirtualLocation, keepRouteState bool) {
	if !keepRouteState {
		loc.Reset(rawURL)
	}
	c.RemoveStateAndPath(name)
}

// RemoveStateAndPath strips an app's encoded segment and private state
// from the shared URL and history.state.
func (c *Core) RemoveStateAndPath(name string) {
	query := delQueryParam(c.browser.RawQuery(), name)
	c.browser.Replace(query, c.mergeState(name, nil, false))
	if c.metrics != nil {
		c.metrics.RouterStrips.Inc()
	}
}

// appState reads the app's private payload out of the shared state.
func (c *Core) appState(name string) interface{} {
	if nested, ok := c.browser.State()[StateKey].(map[string]interface{}); ok {
		return nested[name]
	}
	return nil
}

// mergeState rebuilds the shared history.state with the app's payload set
// or removed, leaving host-page keys untouched. Payloads are detached via
// a serialization round-trip so the caller cannot alias shared state.
func (c *Core) mergeState(name string, payload interface{}, set bool) map[string]interface{} {
	prev := c.browser.State()
	next := make(map[string]interface{}, len(prev)+1)
	for k, v := range prev {
		if k != StateKey {
			next[k] = v
		}
	}

	nested := make(map[string]interface{})
	if existing, ok := prev[StateKey].(map[string]interface{}); ok {
		for k, v := range existing {
			if k != name {
				nested[k] = v
			}
		}
	}
	if set && payload != nil {
		nested[name] = detach(payload)
	}
	if len(nested) > 0 {
		next[StateKey] = nested
	}
	return next
}

func detach(payload interface{}) interface{} {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return payload
	}
	var out interface{}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return payload
	}
	return out
}

// Query segment helpers. The raw query is edited textually so that other
// apps' segments survive byte-for-byte.

func getQueryParam(rawQuery, name string) (string, bool) {
	key := url.QueryEscape(name)
	for _, pair := range splitQuery(rawQuery) {
		if strings.HasPrefix(pair, key+"=") {
			val, err := url.QueryUnescape(pair[len(key)+1:])
			if err != nil {
				return "", false
			}
			return val, true
		}
	}
	return "", false
}

func setQueryParam(rawQuery, name, value string) string {
	key := url.QueryEscape(name)
	segment := key + "=" + url.QueryEscape(value)

	pairs := splitQuery(rawQuery)
	for i, pair := range pairs {
		if strings.HasPrefix(pair, key+"=") || pair == key {
			pairs[i] = segment
			return strings.Join(pairs, "&")
		}
	}
	return strings.Join(append(pairs, segment), "&")
}

func delQueryParam(rawQuery, name string) string {
	key := url.QueryEscape(name)
	pairs := splitQuery(rawQuery)
	kept := pairs[:0]
	for _, pair := range pairs {
		if strings.HasPrefix(pair, key+"=") || pair == key {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func splitQuery(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}
	return strings.Split(rawQuery, "&")
}
