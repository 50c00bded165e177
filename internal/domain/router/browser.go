package router

import (
	"fmt"
	"net/url"
	"sync"
)

// Browser models the single shared browser location and history.state
// that every mounted app multiplexes onto. All mutations are
// replace-style: the current entry is overwritten, never pushed.
type Browser struct {
	mu    sync.RWMutex
	url   *url.URL
	state map[string]interface{}
}

// NewBrowser creates a shared browser context positioned at rawURL.
func NewBrowser(rawURL string) (*Browser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid browser url: %w", err)
	}
	return &Browser{url: u, state: make(map[string]interface{})}, nil
}

// URL returns the current shared URL in serialized form.
func (b *Browser) URL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.url.String()
}

// RawQuery returns the current query string.
func (b *Browser) RawQuery() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.url.RawQuery
}

// State returns the current history.state object. The caller must treat
// it as read-only.
func (b *Browser) State() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Replace overwrites query and state of the current history entry.
// Non-query parts of the URL are left untouched: the host page owns them.
func (b *Browser) Replace(rawQuery string, state map[string]interface{}) {
	b.mu.Lock()
	b.url.RawQuery = rawQuery
	b.state = state
	b.mu.Unlock()
}

// Navigate repositions the whole shared URL, as the browser would on a
// back/forward navigation or an address-bar entry. State is replaced
// wholesale.
func (b *Browser) Navigate(rawURL string, state map[string]interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid browser url: %w", err)
	}
	b.mu.Lock()
	b.url = u
	if state == nil {
		state = make(map[string]interface{})
	}
	b.state = state
	b.mu.Unlock()
	return nil
}
