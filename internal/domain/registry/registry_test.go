package registry

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/microfront/internal/domain/lifecycle"
	"github.com/GriffinCanCode/microfront/internal/domain/router"
	"github.com/GriffinCanCode/microfront/internal/domain/sandbox"
	"github.com/GriffinCanCode/microfront/internal/domain/source"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/shared/dom"
)

type nopLoader struct{}

func (nopLoader) Load(context.Context, source.Target) {}

type nopSandbox struct{}

func (nopSandbox) Start(string) error                           { return nil }
func (nopSandbox) Stop() error                                  { return nil }
func (nopSandbox) Exec(string) error                            { return nil }
func (nopSandbox) RecordSnapshot()                              {}
func (nopSandbox) RebuildSnapshot()                             {}
func (nopSandbox) Resolve(string) (*sandbox.Hooks, bool)        { return nil, false }
func (nopSandbox) DispatchEvent(string, map[string]interface{}) {}
func (nopSandbox) DeleteGlobal(string)                          {}

type nopNotifier struct{}

func (nopNotifier) DispatchHost(string, string, map[string]interface{}) {}
func (nopNotifier) DispatchApp(string, string, map[string]interface{})  {}

func newApp(t *testing.T, reg *Registry, name string) *lifecycle.App {
	t.Helper()
	browser, err := router.NewBrowser("http://host.test/")
	if err != nil {
		t.Fatalf("NewBrowser failed: %v", err)
	}
	return lifecycle.New(context.Background(), lifecycle.Options{
		Name:      name,
		URL:       "http://" + name + ".test/",
		Container: dom.NewElement("micro-app"),
		OnDestroy: reg.Remove,
	}, lifecycle.Deps{
		Loader:   nopLoader{},
		Router:   router.NewCore(browser, logging.NewDefault()),
		Sandbox:  nopSandbox{},
		Notifier: nopNotifier{},
		Logger:   logging.NewDefault(),
	})
}

func TestInsertRejectsDuplicateName(t *testing.T) {
	reg := New()
	if err := reg.Insert(newApp(t, reg, "shop")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := reg.Insert(newApp(t, reg, "shop")); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}

func TestNameReusableAfterDestroy(t *testing.T) {
	reg := New()
	app := newApp(t, reg, "shop")
	if err := reg.Insert(app); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Destroy removes the registry entry via OnDestroy, after which the
	// name is free for a fresh construction.
	app.Unmount(true, false)
	if reg.Has("shop") {
		t.Fatal("expected entry removed after destroy")
	}
	if err := reg.Insert(newApp(t, reg, "shop")); err != nil {
		t.Fatalf("reinsert after destroy failed: %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	reg := New()
	for _, name := range []string{"shop", "cart"} {
		if err := reg.Insert(newApp(t, reg, name)); err != nil {
			t.Fatalf("insert %s failed: %v", name, err)
		}
	}

	if _, ok := reg.Get("shop"); !ok {
		t.Error("expected shop to be retrievable")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("expected missing name lookup to fail")
	}
	if got := len(reg.ListAll()); got != 2 {
		t.Errorf("expected 2 apps listed, got %d", got)
	}
	if got := reg.Stats().TotalApps; got != 2 {
		t.Errorf("expected total 2, got %d", got)
	}
}
