package router

import (
	"strings"
	"testing"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
)

func newTestCore(t *testing.T, rawURL string) *Core {
	t.Helper()
	browser, err := NewBrowser(rawURL)
	if err != nil {
		t.Fatalf("NewBrowser failed: %v", err)
	}
	return NewCore(browser, logging.NewDefault())
}

func TestInitRouteStateExportsDefaultRoute(t *testing.T) {
	core := newTestCore(t, "http://host.test/portal")
	binding := core.NewBinding("app1", "http://a.test/index.html")

	core.InitRouteState("app1", "http://a.test/index.html", binding.Location)

	seg, ok := getQueryParam(core.Browser().RawQuery(), "app1")
	if !ok {
		t.Fatal("expected app1 segment in shared URL")
	}
	if seg != "/index.html" {
		t.Errorf("expected default route '/index.html', got %q", seg)
	}
}

func TestInitRouteStateDecodesExistingSegment(t *testing.T) {
	core := newTestCore(t, "http://host.test/portal?app1=%2Fdetail%3Fid%3D5")
	binding := core.NewBinding("app1", "http://a.test/index.html")

	core.InitRouteState("app1", "http://a.test/index.html", binding.Location)

	if got := binding.Location.Pathname(); got != "/detail" {
		t.Errorf("expected pathname '/detail', got %q", got)
	}
	if got := binding.Location.Search(); got != "?id=5" {
		t.Errorf("expected search '?id=5', got %q", got)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	core := newTestCore(t, "http://host.test/portal?tab=home")
	a := core.NewBinding("appA", "http://a.test/")
	b := core.NewBinding("appB", "http://b.test/")

	b.Location.SetFromPath("/b-page?q=1")
	core.UpdateBrowserURL("appB", b.Location, nil)

	before := core.Browser().RawQuery()
	bSegBefore := extractRawPair(before, "appB")

	// Encoding A must leave B's segment byte-for-byte unchanged.
	a.Location.SetFromPath("/a-page#top")
	core.UpdateBrowserURL("appA", a.Location, map[string]interface{}{"n": 1})

	after := core.Browser().RawQuery()
	if got := extractRawPair(after, "appB"); got != bSegBefore {
		t.Errorf("appB segment changed: %q -> %q", bSegBefore, got)
	}
	if !strings.Contains(after, "tab=home") {
		t.Error("host page query param was clobbered")
	}

	// And stripping A must leave B alone too.
	core.RemoveStateAndPath("appA")
	if got := extractRawPair(core.Browser().RawQuery(), "appB"); got != bSegBefore {
		t.Error("appB segment changed by removing appA")
	}
	if _, ok := getQueryParam(core.Browser().RawQuery(), "appA"); ok {
		t.Error("appA segment should be gone")
	}
}

func TestClearRouteStateKeep(t *testing.T) {
	core := newTestCore(t, "http://host.test/")
	binding := core.NewBinding("app1", "http://a.test/index.html")
	binding.Location.SetFromPath("/deep/page?x=2#frag")
	core.UpdateBrowserURL("app1", binding.Location, nil)

	core.ClearRouteState("app1", "http://a.test/index.html", binding.Location, true)

	// In-memory location untouched.
	if got := binding.Location.FullPath(); got != "/deep/page?x=2#frag" {
		t.Errorf("location should be preserved, got %q", got)
	}
	// Browser trace stripped regardless.
	if _, ok := getQueryParam(core.Browser().RawQuery(), "app1"); ok {
		t.Error("segment should be stripped from shared URL")
	}
}

func TestClearRouteStateReset(t *testing.T) {
	core := newTestCore(t, "http://host.test/")
	binding := core.NewBinding("app1", "http://a.test/index.html?base=1")
	binding.Location.SetFromPath("/deep/page?x=2")
	core.UpdateBrowserURL("app1", binding.Location, nil)

	core.ClearRouteState("app1", "http://a.test/index.html?base=1", binding.Location, false)

	if got := binding.Location.Pathname(); got != "/index.html" {
		t.Errorf("expected reset pathname '/index.html', got %q", got)
	}
	if got := binding.Location.Search(); got != "?base=1" {
		t.Errorf("expected reset search '?base=1', got %q", got)
	}
	if _, ok := getQueryParam(core.Browser().RawQuery(), "app1"); ok {
		t.Error("segment should be stripped from shared URL")
	}
}

func TestHistoryStateNesting(t *testing.T) {
	core := newTestCore(t, "http://host.test/")
	core.Browser().Navigate("http://host.test/", map[string]interface{}{"host": "kept"})

	a := core.NewBinding("appA", "http://a.test/")
	b := core.NewBinding("appB", "http://b.test/")
	core.UpdateBrowserURL("appA", a.Location, map[string]interface{}{"scroll": 10})
	core.UpdateBrowserURL("appB", b.Location, map[string]interface{}{"scroll": 20})

	state := core.Browser().State()
	if state["host"] != "kept" {
		t.Error("host state key must be preserved untouched")
	}
	nested, ok := state[StateKey].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested %s map", StateKey)
	}
	if len(nested) != 2 {
		t.Errorf("expected 2 app payloads, got %d", len(nested))
	}

	core.RemoveStateAndPath("appA")
	nested, _ = core.Browser().State()[StateKey].(map[string]interface{})
	if _, exists := nested["appA"]; exists {
		t.Error("appA payload should be removed")
	}
	if _, exists := nested["appB"]; !exists {
		t.Error("appB payload should survive")
	}
}

func TestVirtualHistoryReplacesOnly(t *testing.T) {
	core := newTestCore(t, "http://host.test/")
	binding := core.NewBinding("app1", "http://a.test/")

	binding.History.PushState(map[string]interface{}{"step": 1}, "/step1")
	binding.History.PushState(map[string]interface{}{"step": 2}, "/step2")

	seg, ok := getQueryParam(core.Browser().RawQuery(), "app1")
	if !ok || seg != "/step2" {
		t.Errorf("expected single replaced segment '/step2', got %q", seg)
	}
	if got := binding.Location.Pathname(); got != "/step2" {
		t.Errorf("expected pathname '/step2', got %q", got)
	}
}

// extractRawPair returns the raw key=value pair for a name without
// unescaping, for byte-for-byte comparisons.
func extractRawPair(rawQuery, name string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(pair, name+"=") {
			return pair
		}
	}
	return ""
}
