package events

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

func TestListenersRunInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	d.Listen("shop", func(types.Event) { order = append(order, 1) })
	d.Listen("shop", func(types.Event) { order = append(order, 2) })

	d.DispatchHost("shop", types.EventMounted, nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected listeners in order, got %v", order)
	}
}

func TestListenersAreScopedPerApp(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Listen("cart", func(types.Event) { called = true })

	d.DispatchHost("shop", types.EventMounted, nil)

	if called {
		t.Error("another app's listener must not fire")
	}
}

func TestForgetDropsListeners(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Listen("shop", func(types.Event) { called = true })

	d.Forget("shop")
	d.DispatchHost("shop", types.EventMounted, nil)

	if called {
		t.Error("forgotten listener must not fire")
	}
}

func TestSubscribeReceivesAllEvents(t *testing.T) {
	d := NewDispatcher()
	stream, cancel := d.Subscribe()
	defer cancel()

	d.DispatchHost("shop", types.EventMounted, nil)
	d.DispatchApp("cart", types.AppEventStateChange, map[string]interface{}{"k": "v"})

	first := recv(t, stream)
	if first.App != "shop" || first.Channel != types.EventMounted || first.ToApp {
		t.Errorf("unexpected first event: %+v", first)
	}
	second := recv(t, stream)
	if second.App != "cart" || !second.ToApp {
		t.Errorf("unexpected second event: %+v", second)
	}
}

func TestCancelClosesStream(t *testing.T) {
	d := NewDispatcher()
	stream, cancel := d.Subscribe()
	cancel()

	// Dispatch after cancel must neither panic nor deliver.
	d.DispatchHost("shop", types.EventMounted, nil)

	select {
	case _, ok := <-stream:
		if ok {
			t.Error("expected closed stream after cancel")
		}
	case <-time.After(time.Second):
		t.Error("expected stream to be closed")
	}
}

func recv(t *testing.T, stream <-chan types.Event) types.Event {
	t.Helper()
	select {
	case ev := <-stream:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}
