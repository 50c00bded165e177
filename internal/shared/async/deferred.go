package async

import "sync"

// Deferred is an explicit asynchronous result with success/failure
// continuations. It settles exactly once; continuations registered after
// settlement run immediately on the caller's goroutine. There is no
// cancellation primitive, so consumers must re-validate their own state
// when a continuation resumes.
type Deferred struct {
	mu       sync.Mutex
	settled  bool
	value    interface{}
	err      error
	onOK     []func(interface{})
	onFailed []func(error)
}

// NewDeferred creates an unsettled deferred.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Resolved returns a deferred already settled with value.
func Resolved(value interface{}) *Deferred {
	d := NewDeferred()
	d.Resolve(value)
	return d
}

// Rejected returns a deferred already settled with err.
func Rejected(err error) *Deferred {
	d := NewDeferred()
	d.Reject(err)
	return d
}

// Resolve settles the deferred successfully. Further settlements are
// ignored.
func (d *Deferred) Resolve(value interface{}) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.value = value
	oks := d.onOK
	d.onOK, d.onFailed = nil, nil
	d.mu.Unlock()

	for _, fn := range oks {
		fn(value)
	}
}

// Reject settles the deferred with an error. Further settlements are
// ignored.
func (d *Deferred) Reject(err error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.err = err
	fails := d.onFailed
	d.onOK, d.onFailed = nil, nil
	d.mu.Unlock()

	for _, fn := range fails {
		fn(err)
	}
}

// Then registers continuations. Either callback may be nil.
func (d *Deferred) Then(onOK func(interface{}), onFailed func(error)) {
	d.mu.Lock()
	if !d.settled {
		if onOK != nil {
			d.onOK = append(d.onOK, onOK)
		}
		if onFailed != nil {
			d.onFailed = append(d.onFailed, onFailed)
		}
		d.mu.Unlock()
		return
	}
	value, err := d.value, d.err
	d.mu.Unlock()

	if err != nil {
		if onFailed != nil {
			onFailed(err)
		}
		return
	}
	if onOK != nil {
		onOK(value)
	}
}

// Settled reports whether the deferred has resolved or rejected.
func (d *Deferred) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}
